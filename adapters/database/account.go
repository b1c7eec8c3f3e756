package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/layer-3/scorer/core"
	"gorm.io/gorm"
)

// EnsureAccount returns the account for address, creating it on first sign-in
func (d *Database) EnsureAccount(ctx context.Context, address string) (*core.Account, error) {
	account := &Account{}
	result := d.db.WithContext(ctx).FirstOrCreate(account, Account{Address: address})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to find or create account: %w", result.Error)
	}
	return account.toCore(), nil
}

// GetAccount gets an account by address
func (d *Database) GetAccount(ctx context.Context, address string) (*core.Account, error) {
	account := &Account{}
	result := d.db.WithContext(ctx).Where("address = ?", address).First(account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, result.Error
	}
	return account.toCore(), nil
}

// CreateAPIKey saves key along with the hash of its secret
func (d *Database) CreateAPIKey(ctx context.Context, key *core.APIKey, hashedKey string) error {
	row := &APIKey{
		ID:        key.ID,
		AccountID: key.AccountID,
		Name:      key.Name,
		Prefix:    key.Prefix,
		HashedKey: hashedKey,
		CreatedAt: key.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = d.now()
	}
	if err := d.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}
	key.CreatedAt = row.CreatedAt
	return nil
}

// AccountForAPIKey resolves the account owning the key with the given hash
func (d *Database) AccountForAPIKey(ctx context.Context, hashedKey string) (*core.Account, error) {
	account := &Account{}
	result := d.db.WithContext(ctx).
		Joins("JOIN api_key ON api_key.account_id = account.id").
		Where("api_key.hashed_key = ?", hashedKey).
		First(account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, result.Error
	}
	return account.toCore(), nil
}
