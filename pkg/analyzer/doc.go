// Package analyzer performs the static pass that runs before execution. It
// walks a program with the same scope manager the evaluator uses, tracking
// the shape of every expression as a SemanticValue, and reports
// declaration, type and control-flow problems as located diagnostics.
//
// The analyzer never stops at the first problem: every statement is checked
// and unknown shapes degrade to any so one mistake does not cascade.
package analyzer
