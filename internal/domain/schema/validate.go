package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"strconv"
	"strings"

	"github.com/okian/reviewdesk/internal/domain/model"
)

// Validate checks a candidate against s and returns the typed record.
// Every field failure is collected; when any is found the result is a
// *ValidationError listing all of them. Candidate keys that the schema does
// not declare are ignored. An invalid email does not fail validation: the
// record is kept with low confidence and a warning.
func Validate(c model.Candidate, s *Schema) (model.Record, error) {
	values := make(map[string]model.Value, len(s.Fields))
	var (
		errs     []FieldError
		warnings []model.Warning
	)

	for _, f := range s.Fields {
		raw, ok := lookup(c, f)
		if !ok {
			if f.Required {
				errs = append(errs, missing(f))
			}
			continue
		}
		v, fe := coerce(f, raw)
		if fe != nil {
			errs = append(errs, *fe)
			continue
		}
		if f.Required && blank(v) {
			errs = append(errs, missing(f))
			continue
		}
		if w, bad := checkEmail(f, v); bad {
			warnings = append(warnings, w)
		}
		values[f.Name] = v
	}

	if len(errs) > 0 {
		return model.Record{}, &ValidationError{Schema: s.Name, Errors: errs}
	}

	rec := model.NewRecord(s.Name, values)
	for _, w := range warnings {
		rec = rec.WithWarning(w)
	}
	return rec, nil
}

// ValidatePartial checks a patch of field values, as supplied by a human
// reviewer. Keys may be field names or aliases; unknown keys fail with
// CodeUnknown. Required fields are not enforced beyond rejecting blanks.
// Non-fatal findings, such as an invalid email, come back as warnings.
func ValidatePartial(fields map[string]any, s *Schema) (map[string]model.Value, []model.Warning, error) {
	out := make(map[string]model.Value, len(fields))
	var (
		errs     []FieldError
		warnings []model.Warning
	)

	for _, key := range sortedKeys(fields) {
		f, ok := s.resolve(key)
		if !ok {
			errs = append(errs, FieldError{Field: key, Code: CodeUnknown, Message: "not declared by schema"})
			continue
		}
		raw := fields[key]
		if raw == nil {
			errs = append(errs, FieldError{Field: f.Name, Code: CodeWrongType, Message: "null is not a value"})
			continue
		}
		v, fe := coerce(f, raw)
		if fe != nil {
			errs = append(errs, *fe)
			continue
		}
		if f.Required && blank(v) {
			errs = append(errs, missing(f))
			continue
		}
		if w, bad := checkEmail(f, v); bad {
			warnings = append(warnings, w)
		}
		out[f.Name] = v
	}

	if len(errs) > 0 {
		return nil, nil, &ValidationError{Schema: s.Name, Errors: errs}
	}
	return out, warnings, nil
}

// Recheck recomputes the confidence and warnings of rec from the values it
// carries now. It is applied to effective records, where overrides may have
// fixed or introduced a suspicious value.
func Recheck(rec model.Record, s *Schema) model.Record {
	out := rec.WithoutWarnings()
	for _, f := range s.Fields {
		if w, bad := checkEmail(f, rec.Get(f.Name)); bad {
			out = out.WithWarning(w)
		}
	}
	return out
}

// lookup finds the raw value for f, trying the name before each alias.
// JSON null counts as absent.
func lookup(c model.Candidate, f Field) (any, bool) {
	if v, ok := c[f.Name]; ok && v != nil {
		return v, true
	}
	for _, a := range f.Aliases {
		if v, ok := c[a]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func coerce(f Field, raw any) (model.Value, *FieldError) {
	switch f.Type {
	case TypeInt:
		return coerceInt(f, raw)
	case TypeEnum:
		return coerceEnum(f, raw)
	case TypeList:
		return coerceList(f, raw)
	default:
		s, ok := raw.(string)
		if !ok {
			return model.Value{}, wrongType(f, raw)
		}
		if f.Type == TypeEmail {
			s = strings.TrimSpace(s)
		}
		return model.String(s), nil
	}
}

func coerceEnum(f Field, raw any) (model.Value, *FieldError) {
	s, ok := raw.(string)
	if !ok {
		return model.Value{}, wrongType(f, raw)
	}
	s = strings.TrimSpace(s)
	for _, allowed := range f.Enum {
		if strings.EqualFold(s, allowed) {
			return model.String(allowed), nil
		}
	}
	return model.Value{}, &FieldError{
		Field:   f.Name,
		Code:    CodeInvalidEnum,
		Allowed: append([]string(nil), f.Enum...),
		Message: fmt.Sprintf("%q is not one of %s", s, strings.Join(f.Enum, ", ")),
	}
}

func coerceInt(f Field, raw any) (model.Value, *FieldError) {
	n, ok := toInt(raw)
	if !ok {
		return model.Value{}, wrongType(f, raw)
	}
	if (f.Min != nil && n < *f.Min) || (f.Max != nil && n > *f.Max) {
		return model.Value{}, &FieldError{
			Field:   f.Name,
			Code:    CodeOutOfRange,
			Message: fmt.Sprintf("%d is outside %s", n, rangeText(f)),
		}
	}
	return model.Int(n), nil
}

func coerceList(f Field, raw any) (model.Value, *FieldError) {
	switch v := raw.(type) {
	case string:
		return model.List(v), nil
	case []string:
		return model.List(v...), nil
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return model.Value{}, wrongType(f, raw)
			}
			items = append(items, s)
		}
		return model.List(items...), nil
	default:
		return model.Value{}, wrongType(f, raw)
	}
}

// toInt accepts integers, integral floats and numeric strings.
func toInt(raw any) (int64, bool) {
	switch v := raw.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return integral(f)
	case float64:
		return integral(v)
	case int:
		return int64(v), true
	case int64:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return integral(f)
	default:
		return 0, false
	}
}

func integral(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func checkEmail(f Field, v model.Value) (model.Warning, bool) {
	if f.Type != TypeEmail || v.IsEmpty() {
		return model.Warning{}, false
	}
	s := v.Text()
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return model.Warning{Field: f.Name, Message: fmt.Sprintf("%q is not a single email address", s)}, true
	}
	return model.Warning{}, false
}

func blank(v model.Value) bool {
	return v.Kind() != model.KindInt && strings.TrimSpace(v.Text()) == ""
}

func missing(f Field) FieldError {
	return FieldError{Field: f.Name, Code: CodeMissing, Message: "required field is missing"}
}

func wrongType(f Field, raw any) *FieldError {
	return &FieldError{
		Field:   f.Name,
		Code:    CodeWrongType,
		Message: fmt.Sprintf("expected %s, got %T", f.Type, raw),
	}
}

func rangeText(f Field) string {
	lo, hi := "-inf", "+inf"
	if f.Min != nil {
		lo = strconv.FormatInt(*f.Min, 10)
	}
	if f.Max != nil {
		hi = strconv.FormatInt(*f.Max, 10)
	}
	return "[" + lo + "," + hi + "]"
}
