package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// UserStore provides identity lookups and broker-credential bookkeeping.
type UserStore struct {
	db *gorm.DB
}

// NewUserStore creates a UserStore bound to the given database handle.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// FindByUsername returns the identity with the given username, with its
// account preloaded. Returns (nil, nil) when no such identity exists.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Preload("Account").Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// FindByEmail returns the identity with the given email, or (nil, nil).
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create persists a new identity.
func (s *UserStore) Create(ctx context.Context, u *User) error {
	return s.db.WithContext(ctx).Create(u).Error
}

// SetBrokerCredential records a (re)issued broker credential on the identity.
func (s *UserStore) SetBrokerCredential(ctx context.Context, userID, natsJWT, natsPublicKey string, expiresAt *time.Time) error {
	return s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Updates(map[string]any{
		"nats_jwt":        natsJWT,
		"nats_public_key": natsPublicKey,
		"nats_expires_at": expiresAt,
		"nats_expired_at": nil,
	}).Error
}

// ExpireBrokerCredential marks the identity's broker credential as expired.
// The identity row itself is kept.
func (s *UserStore) ExpireBrokerCredential(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Updates(map[string]any{
		"nats_jwt":        "",
		"nats_public_key": "",
		"nats_expired_at": time.Now(),
	}).Error
}
