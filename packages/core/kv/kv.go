// Package kv provides the ordered key/value collections behind the header,
// query parameter and environment variable editors.
//
// Every entry carries a stable id assigned from a per-set counter. Ids are
// never reused, so an editor can keep addressing an entry after other rows
// were removed or reordered.
package kv

// Entry is one editable row.
type Entry struct {
	ID    int
	Key   string
	Value string
}

// Pair is a key/value tuple without identity.
type Pair struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Set is an ordered, mutable collection of entries.
// The zero value is an empty set ready to use.
type Set struct {
	entries []Entry
	nextID  int
}

// New returns a set holding a single empty entry, the way an editor starts.
func New() *Set {
	s := &Set{}
	s.Add()
	return s
}

// FromPairs builds a set from pairs, keeping their order.
func FromPairs(pairs []Pair) *Set {
	s := &Set{}
	s.Replace(pairs)
	return s
}

// Add appends an empty entry and returns its id.
func (s *Set) Add() int {
	id := s.nextID
	s.nextID++
	s.entries = append(s.entries, Entry{ID: id})
	return id
}

// Append adds a populated entry and returns its id.
func (s *Set) Append(key, value string) int {
	id := s.Add()
	s.entries[len(s.entries)-1].Key = key
	s.entries[len(s.entries)-1].Value = value
	return id
}

// Remove deletes the entry with the given id. Unknown ids are ignored.
func (s *Set) Remove(id int) {
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

// SetKey updates the key of an entry. Unknown ids are ignored.
func (s *Set) SetKey(id int, key string) {
	if e := s.find(id); e != nil {
		e.Key = key
	}
}

// SetValue updates the value of an entry. Unknown ids are ignored.
func (s *Set) SetValue(id int, value string) {
	if e := s.find(id); e != nil {
		e.Value = value
	}
}

// Replace drops all entries and appends pairs in order. The id counter keeps
// running so ids handed out before the call are never reissued.
func (s *Set) Replace(pairs []Pair) {
	s.entries = s.entries[:0]
	for _, p := range pairs {
		s.Append(p.Key, p.Value)
	}
}

// Len returns the number of entries, including those with empty keys.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Entries returns a copy of all entries in insertion order.
func (s *Set) Entries() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Pairs returns the entries that have a non-empty key, in insertion order.
func (s *Set) Pairs() []Pair {
	if s == nil {
		return nil
	}
	var out []Pair
	for _, e := range s.entries {
		if e.Key == "" {
			continue
		}
		out = append(out, Pair{Key: e.Key, Value: e.Value})
	}
	return out
}

// Clone returns an independent copy that continues the same id sequence.
func (s *Set) Clone() *Set {
	if s == nil {
		return nil
	}
	return &Set{entries: s.Entries(), nextID: s.nextID}
}

func (s *Set) find(id int) *Entry {
	for i := range s.entries {
		if s.entries[i].ID == id {
			return &s.entries[i]
		}
	}
	return nil
}
