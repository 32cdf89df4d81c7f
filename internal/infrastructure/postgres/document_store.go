package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/tgmarket/order-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Poll interval for Subscribe snapshots.
const subscribePollInterval = 2 * time.Second

type DocumentModel struct {
	Collection string `gorm:"primaryKey;size:64"`
	ID         string `gorm:"primaryKey"`
	Data       string `gorm:"type:jsonb"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (DocumentModel) TableName() string {
	return "documents"
}

// DefaultDocumentStore keeps every collection in one jsonb-backed table.
// A single row write is atomic, which is all the capability contract asks for.
type DefaultDocumentStore struct {
	DB *gorm.DB
}

func NewDefaultDocumentStore(db *gorm.DB) *DefaultDocumentStore {
	return &DefaultDocumentStore{
		DB: db,
	}
}

func (s *DefaultDocumentStore) Get(ctx context.Context, collection, id string) (*domain.Document, error) {
	var model DocumentModel
	err := s.DB.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("%w: get %s/%s: %v", domain.ErrStoreUnavailable, collection, id, err)
	}
	return toDomainDocument(&model)
}

func (s *DefaultDocumentStore) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	now := time.Now()
	model := DocumentModel{
		Collection: collection,
		ID:         id,
		Data:       string(data),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("%w: set %s/%s: %v", domain.ErrStoreUnavailable, collection, id, err)
	}
	return nil
}

func (s *DefaultDocumentStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model DocumentModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ? AND id = ?", collection, id).
			First(&model).Error
		if err != nil {
			return err
		}

		var current map[string]any
		if err := json.Unmarshal([]byte(model.Data), &current); err != nil {
			return err
		}
		// Merge must survive a json round trip the same way a full Set does.
		patch, err := normalizeFields(fields)
		if err != nil {
			return err
		}
		for key, value := range patch {
			current[key] = value
		}

		data, err := json.Marshal(current)
		if err != nil {
			return err
		}

		return tx.Model(&DocumentModel{}).
			Where("collection = ? AND id = ?", collection, id).
			Updates(map[string]any{"data": string(data), "updated_at": time.Now()}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrDocumentNotFound
		}
		return fmt.Errorf("%w: update %s/%s: %v", domain.ErrStoreUnavailable, collection, id, err)
	}
	return nil
}

func (s *DefaultDocumentStore) Delete(ctx context.Context, collection, id string) error {
	err := s.DB.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		Delete(&DocumentModel{}).Error
	if err != nil {
		return fmt.Errorf("%w: delete %s/%s: %v", domain.ErrStoreUnavailable, collection, id, err)
	}
	return nil
}

func (s *DefaultDocumentStore) QueryEquals(ctx context.Context, collection string, predicates ...domain.Predicate) ([]*domain.Document, error) {
	query := s.DB.WithContext(ctx).Where("collection = ?", collection)
	for _, p := range predicates {
		query = query.Where("data ->> ? = ?", p.Field, predicateText(p.Value))
	}

	var models []DocumentModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", domain.ErrStoreUnavailable, collection, err)
	}

	docs := make([]*domain.Document, 0, len(models))
	for i := range models {
		doc, err := toDomainDocument(&models[i])
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Subscribe emits collection snapshots on a fixed poll interval until ctx
// is canceled. Good enough for the read-projection consumers; the write
// paths never rely on it.
func (s *DefaultDocumentStore) Subscribe(ctx context.Context, collection string, predicates ...domain.Predicate) (<-chan []*domain.Document, error) {
	out := make(chan []*domain.Document)
	go func() {
		defer close(out)
		ticker := time.NewTicker(subscribePollInterval)
		defer ticker.Stop()
		for {
			docs, err := s.QueryEquals(ctx, collection, predicates...)
			if err == nil {
				select {
				case <-ctx.Done():
					return
				case out <- docs:
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return out, nil
}

func toDomainDocument(model *DocumentModel) (*domain.Document, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(model.Data), &data); err != nil {
		return nil, err
	}
	return &domain.Document{
		ID:   model.ID,
		Data: data,
	}, nil
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

// predicateText renders a predicate value the way jsonb ->> does.
func predicateText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}
