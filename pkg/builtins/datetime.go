package builtins

import (
	"fmt"
	"time"

	"github.com/flexa-script/interpreter-sub000/pkg/ast"
	"github.com/flexa-script/interpreter-sub000/pkg/runtime"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

// DateTimeLibrary is the library name of the date/time module.
const DateTimeLibrary = "flx.std.datetime"

// DateTimeStruct is the struct create_date_time returns.
const DateTimeStruct = "DateTime"

var dateTimeFields = []string{"timestamp", "year", "month", "day", "hour", "min", "sec", "wday", "yday"}

// DateTime declares the DateTime struct and its constructors. The
// create_date_time overloads share one native that dispatches on how many
// parameters the matched overload bound.
func DateTime() *Module {
	fields := make([]*ast.Declaration, 0, len(dateTimeFields))
	for _, name := range dateTimeFields {
		fields = append(fields, param(name, types.Int))
	}
	ret := ast.StructTy(DateTimeStruct)
	ymd := []*ast.Declaration{param("year", types.Int), param("month", types.Int), param("day", types.Int)}
	full := append(append([]*ast.Declaration(nil), ymd...), param("hour", types.Int), param("min", types.Int), param("sec", types.Int))
	return &Module{
		Name: DateTimeLibrary,
		Declarations: []ast.Statement{
			ast.Struct(DateTimeStruct, fields...),
			ast.NativeFn("create_date_time", nil, ret),
			ast.NativeFn("create_date_time", []*ast.Declaration{param("timestamp", types.Int)}, ret),
			ast.NativeFn("create_date_time", ymd, ret),
			ast.NativeFn("create_date_time", full, ret),
			ast.NativeFn("format_date_time", []*ast.Declaration{param("date", types.Any), param("layout", types.String)}, ast.Ty(types.String)),
		},
		Natives: map[string]NativeFunc{
			"create_date_time": nativeCreateDateTime,
			"format_date_time": nativeFormatDateTime,
		},
	}
}

func nativeCreateDateTime(ctx *NativeCallContext) (*runtime.Value, error) {
	var t time.Time
	switch ctx.ArgCount() {
	case 0:
		t = ctx.Now()
	case 1:
		ts, err := ctx.IntArg("timestamp")
		if err != nil {
			return nil, err
		}
		t = time.Unix(ts, 0).UTC()
	case 3, 6:
		parts := make([]int, 0, 6)
		for _, name := range []string{"year", "month", "day", "hour", "min", "sec"}[:ctx.ArgCount()] {
			n, err := ctx.IntArg(name)
			if err != nil {
				return nil, err
			}
			parts = append(parts, int(n))
		}
		for len(parts) < 6 {
			parts = append(parts, 0)
		}
		t = time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], 0, time.UTC)
	default:
		return nil, fmt.Errorf("create_date_time: unsupported argument count %d", ctx.ArgCount())
	}
	return newDateTime(ctx.Heap, t), nil
}

func newDateTime(heap *runtime.Heap, t time.Time) *runtime.Value {
	v := heap.NewStruct(DateTimeStruct, types.DefaultNamespace)
	values := []int64{
		t.Unix(),
		int64(t.Year()),
		int64(t.Month()),
		int64(t.Day()),
		int64(t.Hour()),
		int64(t.Minute()),
		int64(t.Second()),
		int64(t.Weekday()),
		int64(t.YearDay()),
	}
	for idx, name := range dateTimeFields {
		v.SetField(name, heap.NewInt(values[idx]))
	}
	return v
}

func nativeFormatDateTime(ctx *NativeCallContext) (*runtime.Value, error) {
	date, ok := ctx.Arg("date")
	if !ok || date.Type != types.Struct || date.TypeName != DateTimeStruct {
		return nil, fmt.Errorf("format_date_time expects a DateTime")
	}
	ts, ok := date.Field("timestamp")
	if !ok || ts.Type != types.Int {
		return nil, fmt.Errorf("DateTime is missing its timestamp")
	}
	layout, err := ctx.StringArg("layout")
	if err != nil {
		return nil, err
	}
	if layout == "" {
		layout = time.RFC3339
	}
	return ctx.Heap.NewString(time.Unix(ts.Int(), 0).UTC().Format(layout)), nil
}
