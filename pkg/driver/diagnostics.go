package driver

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/flexa-script/interpreter-sub000/pkg/analyzer"
)

// DiagnosticLines splits err into the lines the CLI prints: one per semantic
// diagnostic or manifest issue, otherwise the error text.
func DiagnosticLines(err error) []string {
	if err == nil {
		return nil
	}
	var diags analyzer.Diagnostics
	if errors.As(err, &diags) {
		lines := make([]string, len(diags))
		for idx, d := range diags {
			lines[idx] = d.String()
		}
		return lines
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		lines := make([]string, 0, len(verr.Issues)+1)
		lines = append(lines, "manifest validation failed:")
		for _, issue := range verr.Issues {
			lines = append(lines, "- "+issue)
		}
		return lines
	}
	return strings.Split(err.Error(), "\n")
}

// Report writes err to w, one diagnostic per line.
func Report(w io.Writer, err error) {
	for _, line := range DiagnosticLines(err) {
		fmt.Fprintln(w, line)
	}
}
