package store

import (
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/scribetree/pkg/errors"
)

// Memory keeps documents in process memory.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]Document)}
}

func (m *Memory) Save(_ context.Context, doc *Document) error {
	if err := prepareNew(doc); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[doc.ID]; exists {
		return errors.New(errors.ErrCodeInvalidInput, "document %q already exists", doc.ID)
	}
	m.docs[doc.ID] = clone(*doc)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, notFound(id)
	}
	out := clone(doc)
	return &out, nil
}

func (m *Memory) List(_ context.Context, limit int) ([]Document, error) {
	m.mu.RLock()
	docs := make([]Document, 0, len(m.docs))
	for _, d := range m.docs {
		docs = append(docs, clone(d))
	}
	m.mu.RUnlock()

	slices.SortFunc(docs, func(a, b Document) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareStrings(a.ID, b.ID)
	})
	return docs[:min(len(docs), listLimit(limit))], nil
}

func (m *Memory) Update(_ context.Context, doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.docs[doc.ID]
	if !ok {
		return notFound(doc.ID)
	}
	if !cur.UpdatedAt.Equal(doc.UpdatedAt) {
		return conflict(doc.ID)
	}
	cur.Title = doc.Title
	cur.Note = doc.Note.Clone()
	cur.UpdatedAt = nextUpdate(cur.UpdatedAt)
	m.docs[doc.ID] = cur
	*doc = clone(cur)
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return notFound(id)
	}
	delete(m.docs, id)
	return nil
}

func (m *Memory) Close() error { return nil }

func clone(d Document) Document {
	d.Note = d.Note.Clone()
	return d
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

var _ Store = (*Memory)(nil)
