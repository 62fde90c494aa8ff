package interpreter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flexa-script/interpreter-sub000/pkg/ast"
)

// ErrorKind tags the phase that raised an error in its location header.
type ErrorKind string

const (
	KindInterpreter ErrorKind = "IERR"
	KindSemantic    ErrorKind = "SERR"
)

// RuntimeError is the single error type evaluation raises. Code carries the
// code of a thrown Exception.
type RuntimeError struct {
	Kind    ErrorKind
	Program string
	Row     int
	Col     int
	Message string
	Code    int

	located bool
}

func (e *RuntimeError) Error() string {
	if !e.located {
		return e.Message
	}
	return fmt.Sprintf("(%s) %s[%d:%d]: %s", e.Kind, e.Program, e.Row, e.Col, e.Message)
}

// Located reports whether the location header has been attached.
func (e *RuntimeError) Located() bool { return e.located }

func newRuntimeError(format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: KindInterpreter, Message: fmt.Sprintf(format, args...)}
}

// asRuntimeError converts any error raised during evaluation, including
// errors from natives, into a RuntimeError.
func asRuntimeError(err error) *RuntimeError {
	var rt *RuntimeError
	if errors.As(err, &rt) {
		return rt
	}
	return &RuntimeError{Kind: KindInterpreter, Message: err.Error()}
}

// attachRuntimeContext stamps the program and node position on err. The
// first attachment wins so re-raised errors keep their original location.
func (i *Interpreter) attachRuntimeContext(err error, node ast.Node) error {
	if err == nil || node == nil {
		return err
	}
	rt := asRuntimeError(err)
	if rt.located {
		return rt
	}
	pos := node.Pos()
	rt.Program = i.currentProgramName()
	rt.Row = pos.Row
	rt.Col = pos.Col
	rt.located = true
	return rt
}

// StripLocation returns the message of err without its location header.
func StripLocation(err error) string {
	if err == nil {
		return ""
	}
	var rt *RuntimeError
	if errors.As(err, &rt) {
		return rt.Message
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "(") {
		if idx := strings.Index(msg, "]: "); idx >= 0 {
			return msg[idx+3:]
		}
	}
	return msg
}
