package stash

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/lc/stash/internal/document"
	"github.com/lc/stash/internal/fieldset"
	"github.com/lc/stash/internal/log"
)

// session is one load-then-save pass over a single instance. Sessions are
// ephemeral: Configure opens one around construction and Handle.Save opens
// another on demand; nothing about a session is ever persisted.
type session struct {
	id       string
	key      string
	target   reflect.Value // addressable struct value
	fields   []fieldset.Field
	store    document.Store
	cd       Codec
	readonly bool
	diags    error
}

func newSession(
	key string,
	target reflect.Value,
	fields []fieldset.Field,
	store document.Store,
	cd Codec,
	readonly bool,
) *session {
	return &session{
		id:       uuid.NewString(),
		key:      key,
		target:   target,
		fields:   fields,
		store:    store,
		cd:       cd,
		readonly: readonly,
	}
}

// load populates the instance from the persisted block. Fields absent from
// the block keep their constructed defaults; a field that fails to decode
// keeps its default too, with the failure logged and aggregated. One bad
// field never aborts the load.
func (s *session) load() {
	doc := s.store.Load()
	block := doc.Block(s.key)

	log.Debug("config session open",
		"session", s.id, "class", s.key, "fields", len(s.fields), "persisted", len(block))

	for _, f := range s.fields {
		fv := s.target.FieldByIndex(f.Index)
		if !fv.CanSet() {
			continue
		}
		raw, ok := block[f.Key]
		if !ok {
			continue
		}
		decoded, err := s.cd.Decode(raw, f.Type)
		if err != nil {
			s.skip("load", f.Key, err)
			continue
		}
		if err := assign(fv, decoded, f.Type); err != nil {
			s.skip("load", f.Key, err)
		}
	}
}

// save encodes the instance's current field values into a fresh class block
// and atomically replaces this class's entry in the document. Fields that
// fail to encode are omitted from the block. Read-only sessions stop before
// touching the disk.
func (s *session) save() error {
	block := make(map[string]any, len(s.fields))
	for _, f := range s.fields {
		raw, err := s.cd.Encode(s.target.FieldByIndex(f.Index).Interface(), f.Type)
		if err != nil {
			s.skip("save", f.Key, err)
			continue
		}
		block[f.Key] = raw
	}

	if s.readonly {
		log.Debug("config session close, read-only", "session", s.id, "class", s.key)
		return nil
	}
	if err := s.store.Replace(s.key, block); err != nil {
		return fmt.Errorf("stash: save %s: %w", s.key, err)
	}
	log.Debug("config session close", "session", s.id, "class", s.key, "fields", len(block))
	return nil
}

// skip records a contained per-field failure.
func (s *session) skip(phase, key string, err error) {
	log.Warn("field skipped",
		"session", s.id, "class", s.key, "field", key, "phase", phase, "err", err)
	s.diags = multierr.Append(s.diags, fmt.Errorf("%s %s.%s: %w", phase, s.key, key, err))
}
