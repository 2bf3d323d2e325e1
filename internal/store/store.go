package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"parkbot/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for all database operations.
type Store interface {
	GetLocation(ctx context.Context, userID string) (*model.UserLocation, error)
	PutLocation(ctx context.Context, loc *model.UserLocation) error
	DeleteLocation(ctx context.Context, userID string) error

	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	SubscriptionsForUser(ctx context.Context, userID string) ([]model.PushSubscription, error)
	PutSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// GetLocation returns the user's registered commute, or ErrNotFound.
func (s *gormStore) GetLocation(ctx context.Context, userID string) (*model.UserLocation, error) {
	var loc model.UserLocation
	if err := s.db.WithContext(ctx).First(&loc, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch location for user %s: %w", userID, err)
	}
	return &loc, nil
}

// PutLocation creates or replaces the user's commute.
func (s *gormStore) PutLocation(ctx context.Context, loc *model.UserLocation) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"origin_lat", "origin_lng", "dest_lat", "dest_lng", "updated_at"}),
	}).Create(loc).Error
	if err != nil {
		return fmt.Errorf("failed to upsert location for user %s: %w", loc.UserID, err)
	}
	return nil
}

// DeleteLocation removes the user's commute. Deleting a missing one returns ErrNotFound.
func (s *gormStore) DeleteLocation(ctx context.Context, userID string) error {
	res := s.db.WithContext(ctx).Delete(&model.UserLocation{}, "user_id = ?", userID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete location for user %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch subscription: %w", err)
	}
	return &sub, nil
}

// SubscriptionsForUser lists every push subscription registered for the user.
func (s *gormStore) SubscriptionsForUser(ctx context.Context, userID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for user %s: %w", userID, err)
	}
	return subs, nil
}

// PutSubscription creates a subscription or rebinds an existing endpoint.
func (s *gormStore) PutSubscription(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{}, "endpoint = ?", endpoint).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}
