// Package stash persists per-instance configuration state for arbitrary
// struct types into a single shared JSON document, keyed by type identity.
//
// # Basic Usage
//
// Construct the struct yourself, then hand it to Configure:
//
//	type Widget struct {
//		Size  int    `stash:"size"`
//		Label string `stash:"label"`
//	}
//
//	h, err := stash.Configure(&Widget{Size: 10, Label: "main"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	w := h.Value() // fields now reflect the persisted document
//
// The first construction writes the struct's defaults under the "Widget"
// key; later constructions pick up whatever the document holds, including
// values edited by hand between runs:
//
//	{
//	  "Widget": {
//	    "label": "main",
//	    "size": 42
//	  }
//	}
//
// # Field Discovery
//
// Only exported, non-func, non-chan fields participate. A `stash:"-"` tag
// excludes a field; any other tag value renames its document key. The
// WithFields option further restricts the set but can never widen it.
// A type with zero configurable fields fails Configure with
// ErrNoConfigurableFields.
//
// # Sessions and Atomicity
//
// Every Configure (and Handle.Save) re-reads the document from disk,
// rewrites only its own class block, and persists the whole document via a
// temp-file-and-rename write. Sibling blocks — including ones belonging to
// classes this process knows nothing about — survive verbatim. A missing or
// corrupt document reads as empty and is recreated on the next save.
//
// # Read-Only Handles
//
// stash.ReadOnly() lets a type load persisted state without ever writing it
// back. The load phase still populates the struct; afterwards Set and Save
// fail with ErrReadOnly. Direct field writes on the struct cannot be
// intercepted in Go, so the guarantee covers the handle's mutation surface.
//
// # Concurrency
//
// Handles are safe for concurrent use. Saves against one document path are
// serialized by a process-wide lock per path; loads are not serialized and
// rely on the atomic rename for consistency. Writers in other processes are
// last-writer-wins at the document level.
package stash
