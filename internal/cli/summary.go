package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/snow-profile-map/internal/domain"
)

// SummaryFormat selects how the run summary is printed.
type SummaryFormat string

const (
	SummaryNone SummaryFormat = ""
	SummaryJSON SummaryFormat = "json"
	SummaryYAML SummaryFormat = "yaml"
)

// ParseSummaryFormat validates --summary values.
func ParseSummaryFormat(v string) (SummaryFormat, error) {
	switch SummaryFormat(strings.ToLower(strings.TrimSpace(v))) {
	case SummaryNone, "none":
		return SummaryNone, nil
	case SummaryJSON:
		return SummaryJSON, nil
	case SummaryYAML:
		return SummaryYAML, nil
	default:
		return "", fmt.Errorf("unsupported summary format %q", v)
	}
}

// WriteSummary prints summary to out in format. SummaryNone writes nothing.
func WriteSummary(out io.Writer, summary domain.RenderSummary, format SummaryFormat) error {
	switch format {
	case SummaryNone:
		return nil
	case SummaryJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return fmt.Errorf("marshal json: %w", err)
		}
		return nil
	case SummaryYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(summary); err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported summary format %q", format)
	}
}
