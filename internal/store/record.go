// Package store holds the in-memory record set backing an open vault:
// the record model, its canonical serialization, CRUD and search, and the
// digest and merge operations the sync engine builds on.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Record is a single vault entry. Fields other than Id and Modified are
// opaque to the sync engine; it only ever compares (id, modified) pairs and
// the canonical byte serialization below.
//
// Timestamps are Unix seconds. Modified never decreases on local edits.
type Record struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Username     string            `json:"username"`
	Password     string            `json:"password"`
	URL          string            `json:"url"`
	Email        string            `json:"email"`
	Notes        string            `json:"notes"`
	CustomFields map[string]string `json:"custom_fields"`
	CreatedAt    int64             `json:"created_at"`
	Modified     int64             `json:"modified"`
}

// recordAlias has no JSON methods, so UnmarshalJSON can decode into it
// without recursing.
type recordAlias Record

// UnmarshalJSON decodes a record. An empty custom_fields object decodes to a
// nil map, matching a record that never had custom fields.
func (r *Record) UnmarshalJSON(data []byte) error {
	var a recordAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if len(a.CustomFields) == 0 {
		a.CustomFields = nil
	}
	*r = Record(a)
	return nil
}

// MarshalJSON emits the canonical form: a fixed key order with custom_fields
// keys sorted and no insignificant whitespace. Both sides of a sync hash
// these bytes, so the order here is part of the wire contract.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeStr := func(key, val string) error {
		v, err := json.Marshal(val)
		if err != nil {
			return err
		}
		fmt.Fprintf(&buf, "%q:%s,", key, v)
		return nil
	}

	for _, f := range []struct{ k, v string }{
		{"id", r.ID},
		{"title", r.Title},
		{"username", r.Username},
		{"password", r.Password},
		{"url", r.URL},
		{"email", r.Email},
		{"notes", r.Notes},
	} {
		if err := writeStr(f.k, f.v); err != nil {
			return nil, err
		}
	}

	buf.WriteString(`"custom_fields":{`)
	keys := make([]string, 0, len(r.CustomFields))
	for k := range r.CustomFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		v, err := json.Marshal(r.CustomFields[k])
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "%q:%s", k, v)
	}
	buf.WriteString("},")

	fmt.Fprintf(&buf, `"created_at":%d,"modified":%d`, r.CreatedAt, r.Modified)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// CanonicalJSON returns the byte serialization used for hashing.
func (r *Record) CanonicalJSON() ([]byte, error) {
	return json.Marshal(*r)
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	c := *r
	if r.CustomFields != nil {
		c.CustomFields = make(map[string]string, len(r.CustomFields))
		for k, v := range r.CustomFields {
			c.CustomFields[k] = v
		}
	}
	return &c
}

// NewID returns a fresh RFC-4122 v4 UUID in string form.
func NewID() string {
	return uuid.NewString()
}
