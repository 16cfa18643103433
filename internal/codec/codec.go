// Package codec converts runtime values to and from JSON-compatible
// document values, coercing at the boundary according to the declared
// field type. Scalars go through spf13/cast; composite kinds go through
// mapstructure so hand-edited documents with slightly-off shapes still
// decode.
package codec

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
)

var (
	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

// Codec is the default value codec.
type Codec struct{}

// New returns the default codec.
func New() Codec {
	return Codec{}
}

// Encode converts v, declared as type t, into a JSON-compatible document
// value. Durations encode as their string form so the document stays
// hand-editable; everything else is normalized through a JSON round trip,
// which also surfaces unencodable values (NaN floats, cyclic pointers) as
// errors instead of letting them corrupt the document.
func (Codec) Encode(v any, t reflect.Type) (any, error) {
	if t == durationType {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return nil, fmt.Errorf("codec: encode duration: %w", err)
		}
		return d.String(), nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("codec: encode %s: %w", t, err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("codec: encode %s: %w", t, err)
	}
	return out, nil
}

// Decode converts a document value into a value assignable to the declared
// type t.
func (Codec) Decode(raw any, t reflect.Type) (any, error) {
	switch t {
	case durationType:
		d, err := cast.ToDurationE(raw)
		if err != nil {
			return nil, fmt.Errorf("codec: decode duration: %w", err)
		}
		return d, nil
	case timeType:
		ts, err := cast.ToTimeE(raw)
		if err != nil {
			return nil, fmt.Errorf("codec: decode time: %w", err)
		}
		return ts, nil
	}

	switch t.Kind() {
	case reflect.String:
		s, err := cast.ToStringE(raw)
		if err != nil {
			return nil, decodeErr(t, err)
		}
		return convert(s, t)
	case reflect.Bool:
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return nil, decodeErr(t, err)
		}
		return convert(b, t)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := cast.ToInt64E(raw)
		if err != nil {
			return nil, decodeErr(t, err)
		}
		if reflect.Zero(t).OverflowInt(n) {
			return nil, fmt.Errorf("codec: decode %s: value %d overflows", t, n)
		}
		return convert(n, t)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := cast.ToUint64E(raw)
		if err != nil {
			return nil, decodeErr(t, err)
		}
		if reflect.Zero(t).OverflowUint(n) {
			return nil, fmt.Errorf("codec: decode %s: value %d overflows", t, n)
		}
		return convert(n, t)
	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, decodeErr(t, err)
		}
		return convert(f, t)
	case reflect.Interface:
		return raw, nil
	default:
		return decodeComposite(raw, t)
	}
}

// decodeComposite handles slices, maps, structs and pointers via
// mapstructure, with hooks so nested durations and RFC 3339 timestamps
// persisted as strings come back typed.
func decodeComposite(raw any, t reflect.Type) (any, error) {
	out := reflect.New(t)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out.Interface(),
		TagName: "stash",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return nil, decodeErr(t, err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, decodeErr(t, err)
	}
	return out.Elem().Interface(), nil
}

func convert(v any, t reflect.Type) (any, error) {
	rv := reflect.ValueOf(v)
	if !rv.Type().ConvertibleTo(t) {
		return nil, fmt.Errorf("codec: decode %s: cannot convert %s", t, rv.Type())
	}
	return rv.Convert(t).Interface(), nil
}

func decodeErr(t reflect.Type, err error) error {
	return fmt.Errorf("codec: decode %s: %w", t, err)
}
