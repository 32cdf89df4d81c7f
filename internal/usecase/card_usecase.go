package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/tgmarket/order-service/internal/domain"
	"github.com/tgmarket/order-service/internal/infrastructure/kafka"
	"github.com/tgmarket/order-service/internal/infrastructure/metrics"
	carddto "github.com/tgmarket/order-service/internal/usecase/dto/card"
)

type CardUsecase interface {
	SaveCard(ctx context.Context, input *carddto.SaveCardInput) (*carddto.SaveCardOutput, error)
	SetDefaultCard(ctx context.Context, input *carddto.SetDefaultCardInput) error
	DeleteCard(ctx context.Context, cardRecordID string) error
	GetUserCards(ctx context.Context, userID string) ([]*domain.SavedCard, error)
	GetDefaultCard(ctx context.Context, userID string) (*domain.SavedCard, error)
}

// CardEventPublisher pushes card lifecycle events to the message broker.
type CardEventPublisher interface {
	PublishCardEvent(event kafka.CardEvent) error
}

type DefaultCardUsecase struct {
	Store     domain.DocumentStore
	Publisher CardEventPublisher
	Metrics   *metrics.OrderMetrics
}

func NewDefaultCardUsecase(store domain.DocumentStore, publisher CardEventPublisher, orderMetrics *metrics.OrderMetrics) *DefaultCardUsecase {
	return &DefaultCardUsecase{
		Store:     store,
		Publisher: publisher,
		Metrics:   orderMetrics,
	}
}

// SaveCard registers a gateway-verified card for the user. The document id is
// the composite (userID, cardID) key, so re-saving the same card is an upsert
// that keeps the existing default flag and creation time. The first active
// card of a user becomes the default automatically.
func (uc *DefaultCardUsecase) SaveCard(ctx context.Context, input *carddto.SaveCardInput) (*carddto.SaveCardOutput, error) {
	if input.UserID == "" {
		return nil, fmt.Errorf("%w: userId is required", domain.ErrValidation)
	}
	if input.CardID == "" {
		return nil, fmt.Errorf("%w: cardId is required", domain.ErrValidation)
	}
	if input.CardMask == "" || input.CardType == "" {
		return nil, fmt.Errorf("%w: cardMask and cardType are required", domain.ErrValidation)
	}

	recordID := domain.CardRecordID(input.UserID, input.CardID)

	cards, err := uc.loadUserCards(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	card := domain.SavedCard{
		ID:        recordID,
		UserID:    input.UserID,
		CardID:    input.CardID,
		CardMask:  input.CardMask,
		CardType:  input.CardType,
		CreatedAt: now,
		UpdatedAt: now,
	}

	isFirstCard := false
	if existing := findCard(cards, recordID); existing != nil && !existing.IsDeleted {
		// Idempotent re-save: keep the flags the record already carries.
		card.IsDefault = existing.IsDefault
		card.CreatedAt = existing.CreatedAt
	} else {
		// NOTE: read-then-write; two concurrent first saves for one user can
		// both observe an empty set. The listing path repairs the duplicate
		// default on the next read.
		isFirstCard = !hasActiveCardExcept(cards, recordID)
		card.IsDefault = isFirstCard
	}

	fields, err := domain.EncodeFields(card)
	if err != nil {
		return nil, err
	}
	if err := uc.Store.Set(ctx, domain.CollectionSavedCards, recordID, fields); err != nil {
		return nil, err
	}

	if uc.Metrics != nil {
		uc.Metrics.RecordCardSaved(isFirstCard)
	}
	uc.publishCardEvent(kafka.CardEvent{
		CardRecordID: recordID,
		UserID:       input.UserID,
		Action:       "saved",
		IsDefault:    card.IsDefault,
	})

	return &carddto.SaveCardOutput{
		CardRecordID: recordID,
		IsDefault:    card.IsDefault,
	}, nil
}

// SetDefaultCard moves the default flag to the target card. The target is
// verified to exist, be active and belong to the user before any write is
// issued, so a not-found target never leaves partial mutations behind.
// Every active card of the user is rewritten with a fresh updatedAt, which
// makes the call idempotent.
func (uc *DefaultCardUsecase) SetDefaultCard(ctx context.Context, input *carddto.SetDefaultCardInput) error {
	if input.UserID == "" || input.CardRecordID == "" {
		return fmt.Errorf("%w: userId and card record id are required", domain.ErrValidation)
	}

	target, err := uc.getCard(ctx, input.CardRecordID)
	if err != nil {
		return err
	}
	if target.IsDeleted || target.UserID != input.UserID {
		return domain.ErrCardNotFound
	}

	cards, err := uc.loadUserCards(ctx, input.UserID)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, card := range cards {
		if card.IsDeleted {
			continue
		}
		err := uc.Store.Update(ctx, domain.CollectionSavedCards, card.ID, map[string]any{
			"isDefault": card.ID == input.CardRecordID,
			"updatedAt": now,
		})
		if err != nil {
			return err
		}
	}

	if uc.Metrics != nil {
		uc.Metrics.RecordDefaultReassigned()
	}
	uc.publishCardEvent(kafka.CardEvent{
		CardRecordID: input.CardRecordID,
		UserID:       input.UserID,
		Action:       "default_set",
		IsDefault:    true,
	})

	return nil
}

// DeleteCard soft-deletes the card; the record stays retrievable for audit.
// If the deleted card was the default, the oldest remaining active card is
// re-elected so the user is never left without a default.
func (uc *DefaultCardUsecase) DeleteCard(ctx context.Context, cardRecordID string) error {
	if cardRecordID == "" {
		return fmt.Errorf("%w: card record id is required", domain.ErrValidation)
	}

	card, err := uc.getCard(ctx, cardRecordID)
	if err != nil {
		return err
	}

	now := time.Now()
	err = uc.Store.Update(ctx, domain.CollectionSavedCards, cardRecordID, map[string]any{
		"isDeleted": true,
		"isDefault": false,
		"updatedAt": now,
	})
	if err != nil {
		return err
	}

	if card.IsDefault {
		if err := uc.electNewDefault(ctx, card.UserID, cardRecordID); err != nil {
			slog.Error("failed to re-elect default card",
				"user_id", card.UserID, "deleted_card", cardRecordID, "error", err.Error())
		}
	}

	if uc.Metrics != nil {
		uc.Metrics.RecordCardDeleted()
	}
	uc.publishCardEvent(kafka.CardEvent{
		CardRecordID: cardRecordID,
		UserID:       card.UserID,
		Action:       "deleted",
	})

	return nil
}

// GetUserCards lists the user's active cards ordered by creation time.
// If more than one card carries the default flag (possible after racing
// first saves), the oldest keeps it and the rest are repaired in place.
func (uc *DefaultCardUsecase) GetUserCards(ctx context.Context, userID string) ([]*domain.SavedCard, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", domain.ErrValidation)
	}

	cards, err := uc.loadUserCards(ctx, userID)
	if err != nil {
		return nil, err
	}

	active := make([]*domain.SavedCard, 0, len(cards))
	for _, card := range cards {
		if !card.IsDeleted {
			active = append(active, card)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})

	if err := uc.repairDefaults(ctx, userID, active); err != nil {
		return nil, err
	}

	return active, nil
}

func (uc *DefaultCardUsecase) GetDefaultCard(ctx context.Context, userID string) (*domain.SavedCard, error) {
	cards, err := uc.GetUserCards(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, card := range cards {
		if card.IsDefault {
			return card, nil
		}
	}
	return nil, domain.ErrCardNotFound
}

// repairDefaults clears extra default flags, keeping the oldest one.
// Violations are logged, never surfaced to the caller.
func (uc *DefaultCardUsecase) repairDefaults(ctx context.Context, userID string, active []*domain.SavedCard) error {
	var defaults []*domain.SavedCard
	for _, card := range active {
		if card.IsDefault {
			defaults = append(defaults, card)
		}
	}
	if len(defaults) <= 1 {
		return nil
	}

	slog.Warn("multiple default cards found, repairing",
		"user_id", userID, "defaults", len(defaults))

	now := time.Now()
	for _, card := range defaults[1:] {
		err := uc.Store.Update(ctx, domain.CollectionSavedCards, card.ID, map[string]any{
			"isDefault": false,
			"updatedAt": now,
		})
		if err != nil {
			return err
		}
		card.IsDefault = false
	}

	if uc.Metrics != nil {
		uc.Metrics.RecordDefaultRepaired()
	}
	return nil
}

func (uc *DefaultCardUsecase) electNewDefault(ctx context.Context, userID, deletedCardID string) error {
	cards, err := uc.loadUserCards(ctx, userID)
	if err != nil {
		return err
	}

	var oldest *domain.SavedCard
	for _, card := range cards {
		if card.IsDeleted || card.ID == deletedCardID {
			continue
		}
		if oldest == nil || card.CreatedAt.Before(oldest.CreatedAt) {
			oldest = card
		}
	}
	if oldest == nil {
		return nil
	}

	err = uc.Store.Update(ctx, domain.CollectionSavedCards, oldest.ID, map[string]any{
		"isDefault": true,
		"updatedAt": time.Now(),
	})
	if err != nil {
		return err
	}

	slog.Info("default card re-elected", "user_id", userID, "card_record_id", oldest.ID)
	return nil
}

func (uc *DefaultCardUsecase) getCard(ctx context.Context, cardRecordID string) (*domain.SavedCard, error) {
	doc, err := uc.Store.Get(ctx, domain.CollectionSavedCards, cardRecordID)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, domain.ErrCardNotFound
		}
		return nil, err
	}
	var card domain.SavedCard
	if err := domain.DecodeDocument(doc, &card); err != nil {
		return nil, err
	}
	card.ID = doc.ID
	return &card, nil
}

func (uc *DefaultCardUsecase) loadUserCards(ctx context.Context, userID string) ([]*domain.SavedCard, error) {
	docs, err := uc.Store.QueryEquals(ctx, domain.CollectionSavedCards,
		domain.Predicate{Field: "userId", Value: userID})
	if err != nil {
		return nil, err
	}

	cards := make([]*domain.SavedCard, 0, len(docs))
	for _, doc := range docs {
		var card domain.SavedCard
		if err := domain.DecodeDocument(doc, &card); err != nil {
			return nil, err
		}
		card.ID = doc.ID
		cards = append(cards, &card)
	}
	return cards, nil
}

// publishCardEvent publishes inline; a broker failure is logged and never
// fails the card operation.
func (uc *DefaultCardUsecase) publishCardEvent(event kafka.CardEvent) {
	if uc.Publisher == nil {
		return
	}
	if err := uc.Publisher.PublishCardEvent(event); err != nil {
		slog.Error("failed to publish kafka CardEvent", "action", event.Action, "error", err.Error())
	}
}

func findCard(cards []*domain.SavedCard, id string) *domain.SavedCard {
	for _, card := range cards {
		if card.ID == id {
			return card
		}
	}
	return nil
}

func hasActiveCardExcept(cards []*domain.SavedCard, excludeID string) bool {
	for _, card := range cards {
		if !card.IsDeleted && card.ID != excludeID {
			return true
		}
	}
	return false
}
