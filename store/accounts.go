package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// AccountStore provides broker account lookups.
type AccountStore struct {
	db *gorm.DB
}

// NewAccountStore creates an AccountStore bound to the given database handle.
func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

// FindByName returns the account with the given name, or (nil, nil).
func (s *AccountStore) FindByName(ctx context.Context, name string) (*Account, error) {
	var a Account
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByPublicKey returns the account identified by the given public key,
// or (nil, nil).
func (s *AccountStore) FindByPublicKey(ctx context.Context, publicKey string) (*Account, error) {
	var a Account
	err := s.db.WithContext(ctx).Where("public_key = ?", publicKey).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create persists a new account.
func (s *AccountStore) Create(ctx context.Context, a *Account) error {
	return s.db.WithContext(ctx).Create(a).Error
}

// UpdateDescription changes the only mutable field of an account.
func (s *AccountStore) UpdateDescription(ctx context.Context, accountID, description string) error {
	return s.db.WithContext(ctx).Model(&Account{}).Where("id = ?", accountID).
		Update("description", description).Error
}
