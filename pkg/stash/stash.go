// Package stash persists per-type configuration state into a shared JSON
// document. A struct opts in by being passed to Configure right after
// construction: its configurable fields are populated from the document and
// the resulting state is written back, keyed by the type's class key, with
// no per-type load/save code.
package stash

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/atomic"

	"github.com/lc/stash/internal/codec"
	"github.com/lc/stash/internal/document"
	"github.com/lc/stash/internal/fieldset"
)

var (
	// ErrNoConfigurableFields is returned by Configure when discovery
	// yields an empty field set. A type with nothing to persist is a
	// usage error, not a silent no-op.
	ErrNoConfigurableFields = errors.New("stash: no configurable fields")
	// ErrReadOnly is returned from mutation calls on a read-only handle.
	ErrReadOnly = errors.New("stash: handle is read-only")
	// ErrUnknownField is returned when Get or Set names a field outside
	// the configurable set.
	ErrUnknownField = errors.New("stash: unknown field")
	// ErrNotStruct is returned when the configured value is not a struct.
	ErrNotStruct = errors.New("stash: value is not a struct")
)

// Codec converts runtime values to and from document values according to
// the declared field type. Both directions may fail; failures are contained
// to the field being converted.
type Codec interface {
	Encode(v any, t reflect.Type) (any, error)
	Decode(raw any, t reflect.Type) (any, error)
}

type options struct {
	fields   []string
	path     string
	key      string
	readonly bool
	codec    Codec
	store    document.Store
}

// Option configures a Configure call.
type Option func(*options)

// WithFields restricts the configurable set to the named Go struct fields.
// The whitelist only restricts; it cannot make private, tag-excluded, or
// func-typed fields configurable.
func WithFields(names ...string) Option {
	return func(o *options) { o.fields = names }
}

// WithPath overrides the document path for this handle. The default is
// ~/.stash/stash.json.
func WithPath(path string) Option {
	return func(o *options) { o.path = path }
}

// WithKey overrides the class key used inside the document. The default is
// the struct type's name. Two types sharing a key silently share a block;
// WithKey is the escape hatch when that matters.
func WithKey(key string) Option {
	return func(o *options) { o.key = key }
}

// ReadOnly marks the handle read-only: the load phase still populates the
// struct from the document, but nothing is ever written back and Set and
// Save fail with ErrReadOnly once Configure returns.
func ReadOnly() Option {
	return func(o *options) { o.readonly = true }
}

// WithCodec swaps the value codec.
func WithCodec(c Codec) Option {
	return func(o *options) { o.codec = c }
}

// withStore injects a document store. Test seam.
func withStore(s document.Store) Option {
	return func(o *options) { o.store = s }
}

// Handle is the configured view over one struct instance. It is the
// mutation surface that read-only enforcement guards: direct writes to the
// underlying struct cannot be intercepted in Go, so callers that want the
// read-only guarantee route changes through Set.
type Handle[T any] struct {
	mu       sync.Mutex
	v        *T
	key      string
	fields   []fieldset.Field
	byName   map[string]int
	store    document.Store
	cd       Codec
	readonly atomic.Bool
	diags    error
}

// Configure opens one configuration session around an already constructed
// struct: field discovery, load from the document, immediate save back.
// The caller's own construction logic has already run; Configure never
// touches fields outside the configurable set.
//
// Per-field decode and encode failures are contained (the field keeps its
// constructed value, resp. is omitted from the saved block) and reported
// through Diagnostics. A failure to write the document is returned.
func Configure[T any](v *T, opts ...Option) (*Handle[T], error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil pointer", ErrNotStruct)
	}

	o := options{codec: codec.New()}
	for _, opt := range opts {
		opt(&o)
	}

	t := reflect.TypeOf(v).Elem()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotStruct, t.Kind())
	}

	fields, err := fieldset.Discover(t, o.fields)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf(
			"%w in %s: fields must be exported, non-func, and not tag-excluded",
			ErrNoConfigurableFields, t.Name(),
		)
	}

	key := o.key
	if key == "" {
		key = t.Name()
	}
	if key == "" {
		return nil, fmt.Errorf("%w: anonymous struct needs WithKey", ErrNotStruct)
	}

	store := o.store
	if store == nil {
		path := o.path
		if path == "" {
			path = document.DefaultPath()
		}
		// One store per path process-wide, so its lock serializes
		// every save against the document.
		store = document.Shared(path)
	}

	h := &Handle[T]{
		v:      v,
		key:    key,
		fields: fields,
		byName: indexFields(fields),
		store:  store,
		cd:     o.codec,
	}

	s := newSession(key, reflect.ValueOf(v).Elem(), fields, store, h.cd, o.readonly)
	s.load()
	if err := s.save(); err != nil {
		return nil, err
	}
	h.diags = s.diags

	// Read-only engages only after the session closes, so initial
	// population from the document succeeds even for read-only handles.
	if o.readonly {
		h.readonly.Store(true)
	}
	return h, nil
}

// Value returns the configured struct.
func (h *Handle[T]) Value() *T { return h.v }

// Key returns the class key this handle persists under.
func (h *Handle[T]) Key() string { return h.key }

// ReadOnly reports whether the handle rejects mutation.
func (h *Handle[T]) ReadOnly() bool { return h.readonly.Load() }

// Diagnostics returns the contained per-field failures from the most
// recent session, combined, or nil when every field converted cleanly.
func (h *Handle[T]) Diagnostics() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.diags
}

// Get returns the current value of a configurable field, addressed by Go
// field name or document key.
func (h *Handle[T]) Get(name string) (any, error) {
	f, ok := h.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q on %s", ErrUnknownField, name, h.key)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return reflect.ValueOf(h.v).Elem().FieldByIndex(f.Index).Interface(), nil
}

// Set assigns a configurable field, coercing value through the codec.
// It fails with ErrReadOnly on read-only handles and ErrUnknownField for
// names outside the configurable set. The document is not written; call
// Save to persist.
func (h *Handle[T]) Set(name string, value any) error {
	if h.readonly.Load() {
		return fmt.Errorf("%w: cannot set %q on %s", ErrReadOnly, name, h.key)
	}
	f, ok := h.lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q on %s", ErrUnknownField, name, h.key)
	}
	decoded, err := h.cd.Decode(value, f.Type)
	if err != nil {
		return fmt.Errorf("stash: set %s.%s: %w", h.key, f.Key, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	fv := reflect.ValueOf(h.v).Elem().FieldByIndex(f.Index)
	return assign(fv, decoded, f.Type)
}

// Save re-runs the save phase: the struct's current field values are
// encoded and the class block is atomically rewritten, leaving sibling
// blocks untouched. Read-only handles never persist.
func (h *Handle[T]) Save() error {
	if h.readonly.Load() {
		return fmt.Errorf("%w: cannot save %s", ErrReadOnly, h.key)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	s := newSession(h.key, reflect.ValueOf(h.v).Elem(), h.fields, h.store, h.cd, false)
	err := s.save()
	h.diags = s.diags
	return err
}

func (h *Handle[T]) lookup(name string) (fieldset.Field, bool) {
	i, ok := h.byName[name]
	if !ok {
		return fieldset.Field{}, false
	}
	return h.fields[i], true
}

// indexFields maps both the Go field name and the document key to the
// field's position, so Get and Set accept either spelling.
func indexFields(fields []fieldset.Field) map[string]int {
	byName := make(map[string]int, 2*len(fields))
	for i, f := range fields {
		byName[f.Name] = i
		byName[f.Key] = i
	}
	return byName
}

// assign sets target to decoded, converting when the codec handed back a
// convertible-but-different type.
func assign(target reflect.Value, decoded any, t reflect.Type) error {
	if decoded == nil {
		target.Set(reflect.Zero(t))
		return nil
	}
	dv := reflect.ValueOf(decoded)
	if dv.Type() != t {
		switch {
		case dv.Type().AssignableTo(t):
			// interface targets: assign as-is
		case dv.Type().ConvertibleTo(t):
			dv = dv.Convert(t)
		default:
			return fmt.Errorf("stash: cannot assign %s to %s", dv.Type(), t)
		}
	}
	target.Set(dv)
	return nil
}
