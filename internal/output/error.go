package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	tethererr "github.com/mrz1836/tether/pkg/errors"
)

// ErrorOutput is the structured form of an error for machine output.
type ErrorOutput struct {
	Error ErrorDetail `json:"error" yaml:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code       string            `json:"code" yaml:"code"`
	Message    string            `json:"message" yaml:"message"`
	Details    map[string]string `json:"details,omitempty" yaml:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	ExitCode   int               `json:"exit_code" yaml:"exit_code"`
}

// Describe converts any error into its ErrorDetail.
func Describe(err error) ErrorDetail {
	var te *tethererr.TetherError
	if errors.As(err, &te) {
		return ErrorDetail{
			Code:       te.Code,
			Message:    te.Message,
			Details:    te.Details,
			Suggestion: te.Suggestion,
			ExitCode:   te.ExitCode,
		}
	}
	return ErrorDetail{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		ExitCode: tethererr.ExitGeneral,
	}
}

// FormatError formats an error for display.
func FormatError(w io.Writer, err error, format Format) error {
	if err == nil {
		return nil
	}

	detail := Describe(err)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ErrorOutput{Error: detail})
	case FormatYAML:
		return yaml.NewEncoder(w).Encode(ErrorOutput{Error: detail})
	default:
		return formatErrorText(w, detail)
	}
}

func formatErrorText(w io.Writer, d ErrorDetail) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", d.Message)

	if len(d.Details) > 0 {
		keys := make([]string, 0, len(d.Details))
		for k := range d.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		sb.WriteString("\nDetails:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "  %s: %s\n", k, d.Details[k])
		}
	}

	if d.Suggestion != "" {
		fmt.Fprintf(&sb, "\nSuggestion: %s\n", d.Suggestion)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// FormatSuccess formats a success message.
func FormatSuccess(w io.Writer, message string, format Format) error {
	if format == FormatText || format == FormatAuto {
		_, err := fmt.Fprintln(w, message)
		return err
	}
	return NewFormatter(format, w).Print(map[string]string{"status": "success", "message": message})
}
