package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

func invalid(kind string, raw any) error {
	return fmt.Errorf("%w: %#v is not a valid %s", ErrInvalidValue, raw, kind)
}

func loadString(raw any, _ LoadOptions) (any, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case json.Number:
		return v.String(), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	s, err := cast.ToStringE(raw)
	if err != nil {
		return raw, invalid("string", raw)
	}
	return s, nil
}

func loadInteger(raw any, _ LoadOptions) (any, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case uint:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return raw, invalid("integer", raw)
		}
		return int64(v), nil
	case float32:
		return int64(v), nil
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		return raw, invalid("integer", raw)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return raw, invalid("integer", raw)
		}
		return n, nil
	case bool:
		return raw, invalid("integer", raw)
	}
	return raw, invalid("integer", raw)
}

func loadFloat(raw any, _ LoadOptions) (any, error) {
	switch v := raw.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return raw, invalid("float", raw)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return raw, invalid("float", raw)
		}
		return f, nil
	case bool:
		return raw, invalid("float", raw)
	}
	f, err := cast.ToFloat64E(raw)
	if err != nil {
		return raw, invalid("float", raw)
	}
	return f, nil
}

func loadDecimal(raw any, _ LoadOptions) (any, error) {
	switch v := raw.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return raw, invalid("decimal", raw)
		}
		return d, nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return raw, invalid("decimal", raw)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	}
	return raw, invalid("decimal", raw)
}

func loadDatetime(raw any, opts LoadOptions) (any, error) {
	loc := opts.location()
	switch v := raw.(type) {
	case time.Time:
		return v.In(loc), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
	case bool:
		return raw, invalid("datetime", raw)
	}
	t, err := cast.ToTimeInDefaultLocationE(raw, loc)
	if err != nil {
		return raw, invalid("datetime", raw)
	}
	return t.In(loc), nil
}

// loadDate keeps the calendar date as written, regardless of any offset in the input.
func loadDate(raw any, opts LoadOptions) (any, error) {
	var t time.Time
	switch v := raw.(type) {
	case time.Time:
		t = v
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		parsed, err := cast.ToTimeInDefaultLocationE(strings.TrimSpace(v), opts.location())
		if err != nil {
			return raw, invalid("date", raw)
		}
		t = parsed
	default:
		return raw, invalid("date", raw)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

func loadBinary(raw any, _ LoadOptions) (any, error) {
	switch v := raw.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	return raw, invalid("binary", raw)
}

func loadBoolean(raw any, _ LoadOptions) (any, error) {
	if s, ok := raw.(string); ok {
		raw = strings.TrimSpace(s)
	}
	b, err := cast.ToBoolE(raw)
	if err != nil {
		return raw, invalid("boolean", raw)
	}
	return b, nil
}

func loadUUID(raw any, _ LoadOptions) (any, error) {
	switch v := raw.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		id, err := uuid.Parse(strings.TrimSpace(v))
		if err != nil {
			return raw, invalid("uuid", raw)
		}
		return id, nil
	case []byte:
		id, err := uuid.ParseBytes(v)
		if err != nil {
			return raw, invalid("uuid", raw)
		}
		return id, nil
	}
	return raw, invalid("uuid", raw)
}

func loadEnum(raw any, opts LoadOptions) (any, error) {
	v, err := loadString(raw, opts)
	if err != nil {
		return raw, err
	}
	return strings.TrimSpace(v.(string)), nil
}
