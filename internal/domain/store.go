package domain

import (
	"context"
	"encoding/json"
)

// Collections owned or touched by this service.
const (
	CollectionSavedCards    = "savedCards"
	CollectionPendingOrders = "pendingOrders"
	CollectionOrders        = "orders"
	CollectionProducts      = "products"
)

type Document struct {
	ID   string
	Data map[string]any
}

// Predicate is a field equality condition for QueryEquals and Subscribe.
type Predicate struct {
	Field string
	Value any
}

// DocumentStore is the capability contract the core requires from the backing
// document database. Writes to a single document are atomic; nothing here
// spans documents.
type DocumentStore interface {
	// Get returns the document or ErrDocumentNotFound.
	Get(ctx context.Context, collection, id string) (*Document, error)
	// Set creates or fully overwrites the document.
	Set(ctx context.Context, collection, id string, fields map[string]any) error
	// Update merges partial fields into an existing document.
	// Returns ErrDocumentNotFound if the document is absent.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes the document. No-op if absent.
	Delete(ctx context.Context, collection, id string) error
	// QueryEquals returns every document matching all predicates.
	QueryEquals(ctx context.Context, collection string, predicates ...Predicate) ([]*Document, error)
	// Subscribe emits collection snapshots until ctx is canceled.
	Subscribe(ctx context.Context, collection string, predicates ...Predicate) (<-chan []*Document, error)
}

// DecodeDocument maps raw document fields onto a typed entity.
func DecodeDocument(doc *Document, out any) error {
	raw, err := json.Marshal(doc.Data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// EncodeFields flattens a typed entity into document fields.
func EncodeFields(in any) (map[string]any, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
