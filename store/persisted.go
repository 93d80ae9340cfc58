package store

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Storage keys of the two persisted documents.
const (
	PromptDocument = "prompt-results-storage"
	AppDocument    = "geo-gap-store"
)

type envelope struct {
	State   map[string]json.RawMessage `json:"state"`
	Version int                        `json:"version"`
}

// Document is one durable JSON document holding several named fields,
// serialized as {"state":{...},"version":0}. Fields are written through to
// the provider on every change; when every field is null the key is deleted.
type Document struct {
	key      string
	provider Provider
	logger   *slog.Logger

	mu    sync.Mutex
	state map[string]json.RawMessage
}

// OpenDocument loads key from p. A missing or unreadable document starts empty;
// read failures are logged, never returned.
func OpenDocument(key string, p Provider, logger *slog.Logger) *Document {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Document{
		key:      key,
		provider: p,
		logger:   logger,
		state:    make(map[string]json.RawMessage),
	}

	data, err := p.Get(key)
	if err != nil {
		logger.Warn("store: could not read persisted document", "key", key, "error", err)
		return d
	}
	if len(data) == 0 {
		return d
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		logger.Warn("store: discarding malformed persisted document", "key", key, "error", err)
		return d
	}
	for field, raw := range env.State {
		if !isNull(raw) {
			d.state[field] = raw
		}
	}
	return d
}

// Key is the provider key the document is stored under.
func (d *Document) Key() string {
	return d.key
}

func (d *Document) get(field string) json.RawMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state[field]
}

// put replaces field; nil clears it. The durable write is best effort.
func (d *Document) put(field string, raw json.RawMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if raw == nil {
		delete(d.state, field)
	} else {
		d.state[field] = raw
	}

	if len(d.state) == 0 {
		if err := d.provider.Delete(d.key); err != nil {
			d.logger.Error("store: failed to erase persisted document", "key", d.key, "error", err)
		}
		return
	}

	data, err := json.Marshal(envelope{State: d.state, Version: 0})
	if err != nil {
		d.logger.Error("store: failed to encode document", "key", d.key, "error", err)
		return
	}
	if err := d.provider.Set(d.key, data); err != nil {
		d.logger.Error("store: failed to persist document", "key", d.key, "field", field, "error", err)
	}
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// Persisted holds at most one value of T, backed by one field of a Document.
// Get always reflects the last Set or Clear; the last call to run wins.
type Persisted[T any] struct {
	doc   *Document
	field string

	mu    sync.RWMutex
	value *T
}

// NewPersisted binds field of doc and pre-populates it from what was stored.
func NewPersisted[T any](doc *Document, field string) *Persisted[T] {
	s := &Persisted[T]{doc: doc, field: field}

	raw := doc.get(field)
	if raw == nil {
		return s
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		doc.logger.Warn("store: discarding unreadable value", "key", doc.key, "field", field, "error", err)
		return s
	}
	s.value = &v
	return s
}

// Get returns the held value and whether there is one. The value shares
// slices and maps with the store and must be treated as read-only.
func (s *Persisted[T]) Get() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.value == nil {
		var zero T
		return zero, false
	}
	return *s.value, true
}

// Set replaces the value unconditionally.
func (s *Persisted[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = &v
	raw, err := json.Marshal(v)
	if err != nil {
		s.doc.logger.Error("store: failed to encode value", "key", s.doc.key, "field", s.field, "error", err)
		// an older durable value must not come back on reload
		s.doc.put(s.field, nil)
		return
	}
	s.doc.put(s.field, raw)
}

// Clear drops the value and its durable copy. Clearing an empty store is a
// no-op that still succeeds.
func (s *Persisted[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = nil
	s.doc.put(s.field, nil)
}

// Field is the document field the store writes to.
func (s *Persisted[T]) Field() string {
	return s.field
}
