package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/tgmarket/order-service/internal/domain"
)

type subscription struct {
	collection string
	predicates []domain.Predicate
	ch         chan []*domain.Document
	ctx        context.Context
}

// DocumentStore is an in-process implementation of the store contract, used
// by tests and local runs. Fields go through a json round trip on write so
// reads behave exactly like the jsonb-backed store.
type DocumentStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	subs        []*subscription
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		collections: make(map[string]map[string]map[string]any),
	}
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (*domain.Document, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.collections[collection][id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return &domain.Document{ID: id, Data: cloneFields(data)}, nil
}

func (s *DocumentStore) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	_ = ctx

	normalized, err := normalizeFields(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]map[string]any)
	}
	s.collections[collection][id] = normalized
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *DocumentStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	_ = ctx

	patch, err := normalizeFields(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	current, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrDocumentNotFound
	}
	for key, value := range patch {
		current[key] = value
	}
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	_ = ctx

	s.mu.Lock()
	delete(s.collections[collection], id)
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *DocumentStore) QueryEquals(ctx context.Context, collection string, predicates ...domain.Predicate) ([]*domain.Document, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryLocked(collection, predicates), nil
}

func (s *DocumentStore) Subscribe(ctx context.Context, collection string, predicates ...domain.Predicate) (<-chan []*domain.Document, error) {
	sub := &subscription{
		collection: collection,
		predicates: predicates,
		ch:         make(chan []*domain.Document, 1),
		ctx:        ctx,
	}

	s.mu.Lock()
	// Queue the initial snapshot before the subscription becomes visible to
	// notify, so a racing write can never deliver a fresher snapshot first.
	sub.ch <- s.queryLocked(collection, predicates)
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		for i, candidate := range s.subs {
			if candidate == sub {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(sub.ch)
	}()

	return sub.ch, nil
}

func (s *DocumentStore) queryLocked(collection string, predicates []domain.Predicate) []*domain.Document {
	docs := make([]*domain.Document, 0)
	for id, data := range s.collections[collection] {
		if matches(data, predicates) {
			docs = append(docs, &domain.Document{ID: id, Data: cloneFields(data)})
		}
	}
	return docs
}

func (s *DocumentStore) notify(collection string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subs {
		if sub.collection != collection || sub.ctx.Err() != nil {
			continue
		}
		snapshot := s.queryLocked(collection, sub.predicates)
		select {
		case sub.ch <- snapshot:
		default:
			// Slow consumer keeps only the latest snapshot.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- snapshot:
			default:
			}
		}
	}
}

func matches(data map[string]any, predicates []domain.Predicate) bool {
	for _, p := range predicates {
		value, ok := data[p.Field]
		if !ok || !equalJSON(value, p.Value) {
			return false
		}
	}
	return true
}

// equalJSON compares values by their json encoding, which erases the
// difference between e.g. int predicates and float64 document fields.
func equalJSON(a, b any) bool {
	ra, err := json.Marshal(a)
	if err != nil {
		return false
	}
	rb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(ra) == string(rb)
}

func normalizeFields(fields map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var normalized map[string]any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, err
	}
	return normalized, nil
}

func cloneFields(fields map[string]any) map[string]any {
	clone, err := normalizeFields(fields)
	if err != nil {
		return map[string]any{}
	}
	return clone
}
