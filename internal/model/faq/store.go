package faq

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Store exposes FAQ retrieval for the matcher. Implementations are read-only
// once constructed; chat traffic never mutates the table.
type Store interface {
	List() []Entry
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Entry
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied entries.
func NewMemoryStore(items []Entry) *MemoryStore {
	return &MemoryStore{items: append([]Entry(nil), items...)}
}

// List returns the FAQ entries.
func (s *MemoryStore) List() []Entry {
	return append([]Entry(nil), s.items...)
}

// FromFile loads a JSON object mapping question text to answer text. Entries
// are sorted by question so the table order is stable across loads.
func FromFile(path string) ([]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read faq file: %w", err)
	}

	var table map[string]string
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("parse faq file %s: %w", path, err)
	}

	entries := make([]Entry, 0, len(table))
	for question, answer := range table {
		entries = append(entries, Entry{Question: question, Answer: answer})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Question < entries[j].Question })
	return entries, nil
}
