package output

import (
	"fmt"
	"io"
)

// Warn prints a warning to w. Warnings go to stderr so JSON on stdout stays
// parseable.
func Warn(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, "warning: "+format+"\n", args...)
}
