// Package normalize turns the loosely typed values produced by document
// extraction (and echoed back by clients) into canonical clinical values.
// Nothing in this package returns an error: input that cannot be understood
// resolves to nil or false and callers treat nil as "unknown", never as zero.
package normalize

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

var numericToken = regexp.MustCompile(`[-+]?\d*\.\d+|[-+]?\d+`)

var truthyStrings = map[string]bool{
	"true": true,
	"1":    true,
	"t":    true,
	"y":    true,
	"yes":  true,
}

// Boolean coerces raw into a bool. Strings are true only when they match one
// of the accepted affirmative spellings; every other value follows its
// truthiness (non-zero numbers, non-empty collections).
func Boolean(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return truthyStrings[strings.ToLower(strings.TrimSpace(v))]
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	}
	if f := numeric(raw); f != nil {
		return *f != 0
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return false
		}
		return Boolean(rv.Elem().Interface())
	}
	return true
}

// Float extracts a number from raw. Numeric types are returned as-is, strings
// yield their first signed integer or decimal token ("LDL: 178.5 mg/dL" is
// 178.5). Returns nil when no number can be found.
func Float(raw any) *float64 {
	switch v := raw.(type) {
	case nil:
		return nil
	case bool:
		return nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Float(v.String())
		}
		return &f
	case string:
		tok := numericToken.FindString(v)
		if tok == "" {
			return nil
		}
		f, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil
		}
		return &f
	case *float64:
		return v
	}
	return numeric(raw)
}

// LabValue reduces a raw lab entry to its (value, unit) pair. Accepted shapes
// are an object carrying a "value" key (and optionally "unit"), a bare number,
// or a string with an embedded number. Anything else resolves to (nil, "").
func LabValue(raw any) (*float64, string) {
	switch v := raw.(type) {
	case map[string]any:
		inner, ok := v["value"]
		if !ok {
			return nil, ""
		}
		unit, _ := v["unit"].(string)
		return Float(inner), strings.TrimSpace(unit)
	case string:
		return Float(v), ""
	case bool, nil:
		return nil, ""
	}
	if f := Float(raw); f != nil {
		return f, ""
	}
	return nil, ""
}

func numeric(raw any) *float64 {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	default:
		return nil
	}
	return &f
}
