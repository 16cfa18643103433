// Package fieldset computes the set of struct fields that are safe to
// persist and inject. Discovery runs once per configured type; sessions
// work off the resulting descriptor table instead of re-inspecting the
// struct on every construction.
package fieldset

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// TagName is the struct tag consulted for document keys. A tag value of
// "-" excludes the field; an empty or missing tag falls back to the Go
// field name.
const TagName = "stash"

// ErrNotStruct is returned when discovery is attempted on a non-struct type.
var ErrNotStruct = errors.New("fieldset: type is not a struct")

// Field describes one configurable struct field.
type Field struct {
	Name  string       // Go field name
	Key   string       // key used inside the persisted class block
	Type  reflect.Type // declared field type
	Index []int        // reflect index path into the struct
}

// Discover returns the safe, injectable subset of t's fields.
//
// A field qualifies only if all of the following hold: it is exported, its
// document key does not start with an underscore, its tag is not "-", and
// its type is not a func or chan. If whitelist is non-empty only the listed
// Go field names are considered at all; the whitelist restricts, it never
// adds, and it cannot bypass the safety filters.
func Discover(t reflect.Type, whitelist []string) ([]Field, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotStruct, t.Kind())
	}

	var allowed map[string]struct{}
	if len(whitelist) > 0 {
		allowed = make(map[string]struct{}, len(whitelist))
		for _, name := range whitelist {
			allowed[name] = struct{}{}
		}
	}

	var fields []Field
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if allowed != nil {
			if _, ok := allowed[f.Name]; !ok {
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		key, ok := documentKey(f)
		if !ok {
			continue
		}
		switch f.Type.Kind() {
		// The Go rendering of "not callable": funcs and channels carry
		// behavior, not configuration, and have no document representation.
		case reflect.Func, reflect.Chan, reflect.UnsafePointer:
			continue
		}
		fields = append(fields, Field{
			Name:  f.Name,
			Key:   key,
			Type:  f.Type,
			Index: f.Index,
		})
	}
	return fields, nil
}

// documentKey resolves the persisted key for a struct field, reporting
// ok=false when the field is excluded by its tag or key shape.
func documentKey(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get(TagName)
	if tag == "-" {
		return "", false
	}
	key := f.Name
	if tag != "" {
		// Tags may carry future comma options; only the name matters here.
		if idx := strings.IndexByte(tag, ','); idx >= 0 {
			tag = tag[:idx]
		}
		if tag != "" {
			key = tag
		}
	}
	if strings.HasPrefix(key, "_") {
		return "", false
	}
	return key, true
}
