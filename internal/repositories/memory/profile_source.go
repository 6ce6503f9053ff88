// Package memory holds in-process backends used for local runs and tests.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/yoockh/techfinder/internal/models"
	"github.com/yoockh/techfinder/internal/repositories"
	"github.com/yoockh/techfinder/internal/utils"
)

type collection struct {
	order []string
	docs  map[string]map[string]any
	subs  map[uint64]repositories.SnapshotHandler
}

// ProfileSource is an in-memory profile source. Snapshots are delivered
// synchronously on the goroutine that caused the change.
type ProfileSource struct {
	mu      sync.Mutex
	deliver sync.Mutex
	cols    map[models.Category]*collection
	nextID  uint64
	err     error
}

var _ repositories.ProfileSource = (*ProfileSource)(nil)

func NewProfileSource() *ProfileSource {
	s := &ProfileSource{cols: map[models.Category]*collection{}}
	for _, c := range models.Categories {
		s.cols[c] = &collection{docs: map[string]map[string]any{}, subs: map[uint64]repositories.SnapshotHandler{}}
	}
	return s
}

// Put inserts or replaces a document and pushes a snapshot to subscribers.
func (s *ProfileSource) Put(category models.Category, id string, fields map[string]any) {
	s.mu.Lock()
	col := s.col(category)
	if _, ok := col.docs[id]; !ok {
		col.order = append(col.order, id)
	}
	col.docs[id] = copyMap(fields)
	s.mu.Unlock()

	s.broadcast(category)
}

// Remove deletes a document and pushes a snapshot to subscribers.
func (s *ProfileSource) Remove(category models.Category, id string) bool {
	s.mu.Lock()
	col := s.col(category)
	if _, ok := col.docs[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(col.docs, id)
	for i, v := range col.order {
		if v == id {
			col.order = append(col.order[:i], col.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.broadcast(category)
	return true
}

// EmitError reports err to every subscriber of the collection.
func (s *ProfileSource) EmitError(category models.Category, err error) {
	s.mu.Lock()
	handlers := s.handlers(category)
	s.mu.Unlock()

	s.deliver.Lock()
	defer s.deliver.Unlock()
	for _, h := range handlers {
		if h.OnError != nil {
			h.OnError(err)
		}
	}
}

// SetError makes point reads and updates fail with err until cleared with nil.
func (s *ProfileSource) SetError(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *ProfileSource) Subscribers(category models.Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.col(category).subs)
}

func (s *ProfileSource) SubscribeCollection(ctx context.Context, category models.Category, h repositories.SnapshotHandler) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !category.Valid() {
		return nil, utils.E(utils.CodeInvalidArgument, "memory.SubscribeCollection", "unknown category", nil)
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.col(category).subs[id] = h
	docs := s.snapshot(category)
	s.mu.Unlock()

	s.deliver.Lock()
	if h.OnSnapshot != nil {
		h.OnSnapshot(docs)
	}
	s.deliver.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.col(category).subs, id)
			s.mu.Unlock()
		})
	}, nil
}

func (s *ProfileSource) GetDocument(ctx context.Context, category models.Category, id string) (models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return models.Document{}, s.err
	}
	fields, ok := s.col(category).docs[id]
	if !ok {
		return models.Document{}, utils.ErrNotFound
	}
	return models.Document{ID: id, Fields: copyMap(fields)}, nil
}

func (s *ProfileSource) UpdateDocument(ctx context.Context, category models.Category, id string, fields map[string]any) error {
	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return err
	}
	doc, ok := s.col(category).docs[id]
	if !ok {
		s.mu.Unlock()
		return utils.ErrNotFound
	}
	for k, v := range fields {
		setPath(doc, k, copyValue(v))
	}
	s.mu.Unlock()

	s.broadcast(category)
	return nil
}

func (s *ProfileSource) col(category models.Category) *collection {
	c, ok := s.cols[category]
	if !ok {
		c = &collection{docs: map[string]map[string]any{}, subs: map[uint64]repositories.SnapshotHandler{}}
		s.cols[category] = c
	}
	return c
}

func (s *ProfileSource) snapshot(category models.Category) []models.Document {
	col := s.col(category)
	out := make([]models.Document, 0, len(col.order))
	for _, id := range col.order {
		out = append(out, models.Document{ID: id, Fields: copyMap(col.docs[id])})
	}
	return out
}

func (s *ProfileSource) handlers(category models.Category) []repositories.SnapshotHandler {
	col := s.col(category)
	out := make([]repositories.SnapshotHandler, 0, len(col.subs))
	for _, h := range col.subs {
		out = append(out, h)
	}
	return out
}

func (s *ProfileSource) broadcast(category models.Category) {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	s.mu.Lock()
	handlers := s.handlers(category)
	docs := s.snapshot(category)
	s.mu.Unlock()

	for _, h := range handlers {
		if h.OnSnapshot != nil {
			h.OnSnapshot(docs)
		}
	}
}

// setPath assigns v at a dotted key, creating intermediate maps.
func setPath(doc map[string]any, key string, v any) {
	parts := strings.Split(key, ".")
	cur := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		return append([]string{}, t...)
	default:
		return v
	}
}
