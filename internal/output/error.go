package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// ErrorOutput is the JSON envelope for a failed command.
type ErrorOutput struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Kind       string            `json:"kind"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	ExitCode   int               `json:"exit_code"`
}

// DetailOf flattens err into an ErrorDetail.
func DetailOf(err error) ErrorDetail {
	var ce *custerr.CustodianError
	if errors.As(err, &ce) {
		return ErrorDetail{
			Kind:       string(ce.Kind),
			Code:       ce.Code,
			Message:    ce.Message,
			Details:    ce.Details,
			Suggestion: ce.Suggestion,
			ExitCode:   custerr.ExitCode(err),
		}
	}
	return ErrorDetail{
		Kind:     string(custerr.KindGeneral),
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		ExitCode: custerr.ExitGeneral,
	}
}

// FormatError writes err in the requested format.
func FormatError(w io.Writer, err error, format Format) error {
	if err == nil {
		return nil
	}
	d := DetailOf(err)

	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ErrorOutput{Error: d})
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", d.Message))
	if len(d.Details) > 0 {
		keys := make([]string, 0, len(d.Details))
		for k := range d.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("\nDetails:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("  %s: %s\n", k, d.Details[k]))
		}
	}
	if d.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\nSuggestion: %s\n", d.Suggestion))
	}
	_, err = io.WriteString(w, sb.String())
	return err
}

// FormatSuccess formats a success message.
func FormatSuccess(w io.Writer, message string, format Format) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]string{"status": "success", "message": message})
	}
	_, err := fmt.Fprintln(w, message)
	return err
}
