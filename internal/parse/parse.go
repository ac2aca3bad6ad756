// Package parse converts platform scalars into typed values. Identifier and
// timestamp parsing never fail: absent or malformed input yields nil, and
// malformed input is logged. Enum coercion is strict and returns an error.
package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fivetwenty-io/cfops/pkg/capi"
)

// compactOffset matches a trailing numeric zone without a colon, e.g. "+0530".
var compactOffset = regexp.MustCompile(`([+-])(\d{2})(\d{2})$`)

// ID parses a canonical UUID.
func ID(raw string, log capi.Logger) *uuid.UUID {
	if raw == "" {
		return nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		capi.OrNop(log).Warn("unparsable identifier", map[string]interface{}{
			"value": raw,
			"error": err.Error(),
		})

		return nil
	}

	return &id
}

// Timestamp parses an ISO-8601 instant. A trailing "Z" and a "+hhmm" offset are
// accepted alongside "+hh:mm".
func Timestamp(raw string, log capi.Logger) *time.Time {
	if raw == "" {
		return nil
	}

	ts, err := time.Parse(time.RFC3339Nano, normalizeOffset(raw))
	if err != nil {
		capi.OrNop(log).Warn("unparsable timestamp", map[string]interface{}{
			"value": raw,
			"error": err.Error(),
		})

		return nil
	}

	return &ts
}

func normalizeOffset(raw string) string {
	if strings.HasSuffix(raw, "Z") {
		return strings.TrimSuffix(raw, "Z") + "+00:00"
	}

	return compactOffset.ReplaceAllString(raw, "$1$2:$3")
}

// Enum coerces raw into one of known, ignoring case. Any other value, including
// the empty string, is an ErrIncompatibleSchema.
func Enum[T ~string](raw string, known ...T) (T, error) {
	for _, k := range known {
		if strings.EqualFold(string(k), raw) {
			return k, nil
		}
	}

	var zero T

	return zero, fmt.Errorf("%w: %q is not a valid %T", capi.ErrIncompatibleSchema, raw, zero)
}

// Convert coerces a value of one string enum kind into another.
func Convert[T, S ~string](from S, known ...T) (T, error) {
	return Enum(string(from), known...)
}

// Environment flattens an environment object to strings. Non-string values are
// kept in their JSON form and null values are dropped. Nil input yields nil.
func Environment(raw map[string]interface{}) map[string]string {
	if raw == nil {
		return nil
	}

	env := make(map[string]string, len(raw))

	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			env[k] = val
		default:
			encoded, err := json.Marshal(val)
			if err != nil {
				continue
			}

			env[k] = string(encoded)
		}
	}

	return env
}
