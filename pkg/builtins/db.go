package builtins

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/flexa-script/interpreter-sub000/pkg/ast"
	"github.com/flexa-script/interpreter-sub000/pkg/runtime"
	"github.com/flexa-script/interpreter-sub000/pkg/types"
)

// DBLibrary is the library name of the SQLite module.
const DBLibrary = "flx.std.db"

type dbModule struct {
	next    int64
	handles map[int64]*sql.DB
}

// DB declares db_open, db_exec, db_query and db_close over SQLite. Handles
// are ints local to the module instance; query rows come back as arrays of
// column values.
func DB() *Module {
	m := &dbModule{handles: make(map[int64]*sql.DB)}
	handle := param("db", types.Int)
	query := param("sql", types.String)
	return &Module{
		Name: DBLibrary,
		Declarations: []ast.Statement{
			ast.NativeFn("db_open", []*ast.Declaration{param("path", types.String)}, ast.Ty(types.Int)),
			ast.NativeFn("db_exec", []*ast.Declaration{handle, query}, ast.Ty(types.Int)),
			ast.NativeFn("db_query", []*ast.Declaration{handle, query}, ast.ArrTy(types.Any)),
			ast.NativeFn("db_columns", []*ast.Declaration{handle, query}, ast.ArrTy(types.String)),
			ast.NativeFn("db_close", []*ast.Declaration{handle}, ast.Ty(types.Void)),
		},
		Natives: map[string]NativeFunc{
			"db_open":    m.open,
			"db_exec":    m.exec,
			"db_query":   m.query,
			"db_columns": m.columns,
			"db_close":   m.close,
		},
	}
}

func (m *dbModule) open(ctx *NativeCallContext) (*runtime.Value, error) {
	path, err := ctx.StringArg("path")
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("db_open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("db_open: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	m.next++
	m.handles[m.next] = db
	return ctx.Heap.NewInt(m.next), nil
}

func (m *dbModule) lookup(ctx *NativeCallContext) (*sql.DB, int64, error) {
	id, err := ctx.IntArg("db")
	if err != nil {
		return nil, 0, err
	}
	db, ok := m.handles[id]
	if !ok {
		return nil, 0, fmt.Errorf("invalid database handle %d", id)
	}
	return db, id, nil
}

func (m *dbModule) exec(ctx *NativeCallContext) (*runtime.Value, error) {
	db, _, err := m.lookup(ctx)
	if err != nil {
		return nil, err
	}
	stmt, err := ctx.StringArg("sql")
	if err != nil {
		return nil, err
	}
	res, err := db.Exec(stmt)
	if err != nil {
		return nil, fmt.Errorf("db_exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		n = 0
	}
	return ctx.Heap.NewInt(n), nil
}

func (m *dbModule) query(ctx *NativeCallContext) (*runtime.Value, error) {
	rows, cols, err := m.run(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*runtime.Value
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for idx := range raw {
			ptrs[idx] = &raw[idx]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("db_query: %w", err)
		}
		row := make([]*runtime.Value, len(cols))
		for idx, cell := range raw {
			row[idx] = columnValue(ctx.Heap, cell)
		}
		out = append(out, ctx.Heap.NewArrayLiteral(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db_query: %w", err)
	}
	return ctx.Heap.NewArrayLiteral(out), nil
}

func (m *dbModule) columns(ctx *NativeCallContext) (*runtime.Value, error) {
	rows, cols, err := m.run(ctx)
	if err != nil {
		return nil, err
	}
	rows.Close()
	out := make([]*runtime.Value, len(cols))
	for idx, name := range cols {
		out[idx] = ctx.Heap.NewString(name)
	}
	return ctx.Heap.NewArray(types.ArrayShape(types.String, len(out)), out), nil
}

func (m *dbModule) run(ctx *NativeCallContext) (*sql.Rows, []string, error) {
	db, _, err := m.lookup(ctx)
	if err != nil {
		return nil, nil, err
	}
	stmt, err := ctx.StringArg("sql")
	if err != nil {
		return nil, nil, err
	}
	rows, err := db.Query(stmt)
	if err != nil {
		return nil, nil, fmt.Errorf("db_query: %w", err)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, nil, fmt.Errorf("db_query: %w", err)
	}
	return rows, cols, nil
}

func (m *dbModule) close(ctx *NativeCallContext) (*runtime.Value, error) {
	db, id, err := m.lookup(ctx)
	if err != nil {
		return nil, err
	}
	delete(m.handles, id)
	if err := db.Close(); err != nil {
		return nil, fmt.Errorf("db_close: %w", err)
	}
	return nil, nil
}

func columnValue(heap *runtime.Heap, cell any) *runtime.Value {
	switch v := cell.(type) {
	case nil:
		return heap.NewVoid()
	case int64:
		return heap.NewInt(v)
	case float64:
		return heap.NewFloat(v)
	case bool:
		return heap.NewBool(v)
	case string:
		return heap.NewString(v)
	case []byte:
		return heap.NewString(string(v))
	case time.Time:
		return heap.NewString(v.Format(time.RFC3339))
	default:
		return heap.NewString(fmt.Sprint(v))
	}
}
