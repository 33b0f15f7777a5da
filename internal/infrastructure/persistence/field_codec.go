package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/write"
)

var (
	errNotString  = errors.New("expected a string")
	errNotUUID    = errors.New("expected a UUID")
	errNotInteger = errors.New("expected an integer")
	errNotDecimal = errors.New("expected a decimal number")
	errNotBool    = errors.New("expected a boolean")
	errNotTime    = errors.New("expected an RFC 3339 timestamp")
)

// fieldCodec converts decoded JSON values into column values and checks the
// validator rules declared on each field
type fieldCodec struct {
	validate *validator.Validate
}

func newFieldCodec() *fieldCodec {
	return &fieldCodec{validate: validator.New()}
}

// columns converts every field of the row. Field errors are collected for
// the whole row and returned in field name order.
func (c *fieldCodec) columns(def *write.ResourceDefinition, row write.Row) (map[string]any, []write.FieldError) {
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make(map[string]any, len(row))
	var errs []write.FieldError
	for _, name := range names {
		raw := row[name]
		fd, ok := def.Field(name)
		if !ok {
			errs = append(errs, write.FieldError{Field: name, Code: write.ErrCodeUnknownField, Message: "Unknown field", Value: raw})
			continue
		}
		if fd.ReadOnly {
			errs = append(errs, write.FieldError{Field: name, Code: write.ErrCodeReadOnly, Message: "Field is read-only", Value: raw})
			continue
		}
		if raw == nil {
			if name == def.PrimaryKey {
				continue
			}
			if fd.Required {
				errs = append(errs, write.FieldError{Field: name, Code: write.ErrCodeRequired, Message: "This field is required"})
				continue
			}
			values[name] = nil
			continue
		}

		v, err := convertValue(fd.Kind, raw)
		if err != nil {
			errs = append(errs, write.FieldError{Field: name, Code: write.ErrCodeInvalidType, Message: err.Error(), Value: raw})
			continue
		}
		if msg, ok := c.check(fd, v); !ok {
			errs = append(errs, write.FieldError{Field: name, Code: write.ErrCodeInvalidValue, Message: msg, Value: raw})
			continue
		}
		values[name] = v
	}
	return values, errs
}

// check applies the field's validator rules
func (c *fieldCodec) check(fd write.FieldDefinition, v any) (string, bool) {
	if fd.Rules == "" {
		return "", true
	}
	target := v
	if d, ok := v.(decimal.Decimal); ok {
		target = d.InexactFloat64()
	}
	err := c.validate.Var(target, fd.Rules)
	if err == nil {
		return "", true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return validationMessage(verrs[0]), false
	}
	return err.Error(), false
}

func convertValue(kind write.FieldKind, raw any) (any, error) {
	switch kind {
	case write.KindString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
		return nil, errNotString
	case write.KindUUID:
		s, ok := raw.(string)
		if !ok {
			return nil, errNotUUID
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, errNotUUID
		}
		return id.String(), nil
	case write.KindInt:
		return toInt64(raw)
	case write.KindDecimal:
		return toDecimal(raw)
	case write.KindBool:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
		return nil, errNotBool
	case write.KindTime:
		switch t := raw.(type) {
		case time.Time:
			return t.UTC(), nil
		case string:
			parsed, err := time.Parse(time.RFC3339, t)
			if err != nil {
				return nil, errNotTime
			}
			return parsed.UTC(), nil
		}
		return nil, errNotTime
	}
	return nil, fmt.Errorf("unsupported field kind %q", kind)
}

func toInt64(raw any) (int64, error) {
	switch n := raw.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if math.Trunc(n) != n || math.IsInf(n, 0) || n < math.MinInt64 || n >= math.MaxInt64 {
			return 0, errNotInteger
		}
		return int64(n), nil
	case json.Number:
		v, err := n.Int64()
		if err != nil {
			return 0, errNotInteger
		}
		return v, nil
	}
	return 0, errNotInteger
}

func toDecimal(raw any) (decimal.Decimal, error) {
	switch n := raw.(type) {
	case decimal.Decimal:
		return n, nil
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero, errNotDecimal
		}
		return d, nil
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, errNotDecimal
		}
		return d, nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, errNotDecimal
		}
		return decimal.NewFromFloat(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	}
	return decimal.Zero, errNotDecimal
}

// stored normalizes a row read back from the database. Drivers disagree on
// the Go types of numeric and boolean columns, so values are mapped onto the
// field kinds: decimals become strings, booleans become bool.
func stored(def *write.ResourceDefinition, raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		fd, ok := def.Field(k)
		if !ok || v == nil {
			out[k] = v
			continue
		}
		switch fd.Kind {
		case write.KindDecimal:
			if d, err := toDecimal(v); err == nil {
				v = d.String()
			}
		case write.KindBool:
			switch n := v.(type) {
			case int64:
				v = n != 0
			case int:
				v = n != 0
			}
		case write.KindInt:
			if n, err := toInt64(v); err == nil {
				v = n
			}
		}
		out[k] = v
	}
	return out
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "len":
		return "Must be exactly " + e.Param() + " characters"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "lt":
		return "Must be less than " + e.Param()
	case "numeric":
		return "Must be numeric"
	case "email":
		return "Invalid email format"
	case "url":
		return "Invalid URL format"
	default:
		return "Invalid value"
	}
}
