package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fleetline/fleet-api/internal/models"
	appErrors "github.com/fleetline/fleet-api/pkg/errors"
)

// RawPatch is a partial JSON payload keyed by field name.
type RawPatch map[string]json.RawMessage

// ParsePatch normalises a raw payload into stringified values using the field set's declared
// types. Unknown keys are rejected. JSON null clears a field unless the field is required.
func ParsePatch(spec FieldSpec, raw RawPatch) (Values, error) {
	values := make(Values, len(raw))
	var unknown []string
	for name, msg := range raw {
		field, ok := spec.Lookup(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		value, err := parseValue(field, msg)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		if value == nil && field.Required {
			return nil, appErrors.Clone(appErrors.ErrValidation, name+" cannot be cleared")
		}
		values[name] = value
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown fields: "+strings.Join(unknown, ", "))
	}
	return values, nil
}

func parseValue(field Field, msg json.RawMessage) (*string, error) {
	trimmed := bytes.TrimSpace(msg)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch field.Type {
	case models.ValueDate:
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("%s must be a date string", field.Name)
		}
		return normalizeDate(field.Name, s)
	case models.ValueMileage:
		n, err := parseInteger(trimmed)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%s must be a non-negative whole number", field.Name)
		}
		if n > math.MaxInt32 {
			return nil, fmt.Errorf("%s must not exceed %d", field.Name, math.MaxInt32)
		}
		out := strconv.FormatInt(n, 10)
		return &out, nil
	case models.ValueBoolean:
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return nil, fmt.Errorf("%s must be true or false", field.Name)
		}
		return models.FormatBool(b), nil
	default:
		if trimmed[0] == '"' {
			var s string
			if err := json.Unmarshal(trimmed, &s); err != nil {
				return nil, fmt.Errorf("%s must be text", field.Name)
			}
			s = strings.TrimSpace(s)
			if s == "" {
				return nil, nil
			}
			return &s, nil
		}
		f, err := strconv.ParseFloat(string(trimmed), 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be text or a number", field.Name)
		}
		return models.FormatDecimal(f), nil
	}
}

func normalizeDate(name, raw string) (*string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(models.DateLayout, raw); err == nil {
		return models.FormatDate(&t), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return models.FormatDate(&t), nil
	}
	return nil, fmt.Errorf("%s must be formatted as YYYY-MM-DD", name)
}

func parseInteger(raw []byte) (int64, error) {
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	}
	if n, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("not an integer")
	}
	return int64(f), nil
}
