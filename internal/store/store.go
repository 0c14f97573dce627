package store

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/localpdub/localpdub/internal/common"
)

// DocumentVersion is the version stamped into vault metadata.
const DocumentVersion = 1

// Metadata is the vault-level header block kept alongside the records.
// CreatedAt and ModifiedAt are ISO-8601 UTC strings.
type Metadata struct {
	Version    int    `json:"version"`
	CreatedAt  string `json:"created_at"`
	ModifiedAt string `json:"modified_at"`
	EntryCount int    `json:"entry_count"`
}

// document is the plaintext JSON shape sealed into the vault file.
type document struct {
	Metadata   Metadata   `json:"metadata"`
	Entries    []*Record  `json:"entries"`
	Categories []Category `json:"categories"`
}

// timeNow is a test seam.
var timeNow = time.Now

// Store is the mutable in-memory record set of an open vault. All methods
// are safe for concurrent use; readers get snapshot copies.
type Store struct {
	mu         sync.RWMutex
	meta       Metadata
	records    []*Record
	categories []Category
	open       bool
}

// New returns an empty open store with fresh metadata.
func New() *Store {
	now := isoNow()
	return &Store{
		meta: Metadata{Version: DocumentVersion, CreatedAt: now, ModifiedAt: now},
		open: true,
	}
}

// FromDocument parses the plaintext vault JSON into an open store.
func FromDocument(data []byte) (*Store, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, common.ErrInvalidPassword
	}
	return &Store{
		meta:       doc.Metadata,
		records:    doc.Entries,
		categories: doc.Categories,
		open:       true,
	}, nil
}

// MarshalDocument serializes the store into the plaintext vault JSON.
func (s *Store) MarshalDocument() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return nil, common.ErrNotOpen
	}
	doc := document{Metadata: s.meta, Entries: s.records, Categories: s.categories}
	if doc.Entries == nil {
		doc.Entries = []*Record{}
	}
	if doc.Categories == nil {
		doc.Categories = []Category{}
	}
	return json.Marshal(doc)
}

// Close marks the store closed and drops its contents.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.categories = nil
	s.open = false
}

// Add appends a copy of r stamped with a fresh id and timestamps; r itself
// is not modified. Returns the id.
func (s *Store) Add(r *Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return "", common.ErrNotOpen
	}
	c := r.Clone()
	c.ID = NewID()
	now := timeNow().Unix()
	c.CreatedAt = now
	c.Modified = now
	s.records = append(s.records, c)
	s.touch()
	return c.ID, nil
}

// Update replaces the record with matching id, preserving created_at and
// refreshing modified. Returns false if no record matches.
func (s *Store) Update(id string, r *Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return false, common.ErrNotOpen
	}
	for i, old := range s.records {
		if old.ID != id {
			continue
		}
		c := r.Clone()
		c.ID = id
		c.CreatedAt = old.CreatedAt
		c.Modified = nextModified(old.Modified)
		s.records[i] = c
		s.touch()
		return true, nil
	}
	return false, nil
}

// Delete removes the record with matching id. Returns false if absent.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return false, common.ErrNotOpen
	}
	for i, r := range s.records {
		if r.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			s.touch()
			return true, nil
		}
	}
	return false, nil
}

// Get returns a copy of the record with matching id.
func (s *Store) Get(id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return nil, common.ErrNotOpen
	}
	for _, r := range s.records {
		if r.ID == id {
			return r.Clone(), nil
		}
	}
	return nil, common.ErrNotFound
}

// List returns copies of all records in insertion order.
func (s *Store) List() ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return nil, common.ErrNotOpen
	}
	out := make([]*Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out, nil
}

// Search returns records whose title, username or url contains query,
// case-insensitively.
func (s *Store) Search(query string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return nil, common.ErrNotOpen
	}
	q := strings.ToLower(query)
	var out []*Record
	for _, r := range s.records {
		if strings.Contains(strings.ToLower(r.Title), q) ||
			strings.Contains(strings.ToLower(r.Username), q) ||
			strings.Contains(strings.ToLower(r.URL), q) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

// ReplaceAll installs records as the complete new set.
func (s *Store) ReplaceAll(records []*Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return common.ErrNotOpen
	}
	s.records = make([]*Record, len(records))
	for i, r := range records {
		s.records[i] = r.Clone()
	}
	s.touch()
	return nil
}

// Digests computes the digest triple for every record.
func (s *Store) Digests() ([]Digest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return nil, common.ErrNotOpen
	}
	out := make([]Digest, 0, len(s.records))
	for _, r := range s.records {
		d, err := digestOf(r)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Metadata returns a copy of the current metadata block.
func (s *Store) Metadata() Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta
}

// AddCategory appends a category, assigning an id when absent.
func (s *Store) AddCategory(c Category) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return "", common.ErrNotOpen
	}
	if c.ID == "" {
		c.ID = NewID()
	}
	s.categories = append(s.categories, c)
	s.touch()
	return c.ID, nil
}

// UpdateCategory replaces the category with matching id.
func (s *Store) UpdateCategory(id string, c Category) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return false, common.ErrNotOpen
	}
	for i := range s.categories {
		if s.categories[i].ID == id {
			c.ID = id
			s.categories[i] = c
			s.touch()
			return true, nil
		}
	}
	return false, nil
}

// DeleteCategory removes the category with matching id.
func (s *Store) DeleteCategory(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return false, common.ErrNotOpen
	}
	for i := range s.categories {
		if s.categories[i].ID == id {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			s.touch()
			return true, nil
		}
	}
	return false, nil
}

// Categories returns a copy of all categories.
func (s *Store) Categories() ([]Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.open {
		return nil, common.ErrNotOpen
	}
	out := make([]Category, len(s.categories))
	copy(out, s.categories)
	return out, nil
}

// touch refreshes metadata after a mutation. Callers hold the write lock.
func (s *Store) touch() {
	s.meta.ModifiedAt = isoNow()
	s.meta.EntryCount = len(s.records)
}

// nextModified keeps modified nondecreasing even when the wall clock steps
// backwards between edits.
func nextModified(prev int64) int64 {
	now := timeNow().Unix()
	if now <= prev {
		return prev + 1
	}
	return now
}

func isoNow() string {
	return timeNow().UTC().Format(time.RFC3339)
}

// ReplaceDocument installs the records, categories and metadata of another
// store into this one in place. Holders of this store's pointer (the sync
// responder) observe the new content. Used by reload.
func (s *Store) ReplaceDocument(from *Store) error {
	from.mu.RLock()
	records := make([]*Record, len(from.records))
	for i, r := range from.records {
		records[i] = r.Clone()
	}
	categories := make([]Category, len(from.categories))
	copy(categories, from.categories)
	meta := from.meta
	from.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return common.ErrNotOpen
	}
	s.records = records
	s.categories = categories
	s.meta = meta
	return nil
}
