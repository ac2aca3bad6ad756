package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/cfops/internal/constants"
)

const defaultIndent = 2

// render writes data as JSON or YAML, or calls fill to build a table,
// depending on the output flag.
func render[T any](w io.Writer, data T, fill func(*tablewriter.Table)) error {
	switch format := viper.GetString("output"); format {
	case constants.FormatJSON:
		return renderJSON(w, data)
	case constants.FormatYAML:
		return renderYAML(w, data)
	case constants.FormatTable, "":
		table := tablewriter.NewWriter(w)
		fill(table)

		if err := table.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %s", constants.ErrUnsupportedFormat, format)
	}
}

func renderJSON[T any](w io.Writer, data T) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding data to JSON: %w", err)
	}

	return nil
}

func renderYAML[T any](w io.Writer, data T) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(defaultIndent)

	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding data to YAML: %w", err)
	}

	return encoder.Close()
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}

	return s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return constants.NotAvailable
	}

	return t.Format("2006-01-02 15:04:05")
}

func formatInt(n *int) string {
	if n == nil {
		return constants.NotAvailable
	}

	return strconv.Itoa(*n)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}

func isTable() bool {
	format := viper.GetString("output")

	return format == "" || format == constants.FormatTable
}
