package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/layer-3/scorer/ports"
	"gorm.io/gorm"
)

// Claim registers claims for address inside a single transaction. Competing
// claims are ordered by the database, so the earlier committed claim owns the
// key when takeOver is not set.
func (d *Database) Claim(ctx context.Context, communityID uint, address string, claims []ports.HashClaim, takeOver bool) (map[string]string, error) {
	owners := make(map[string]string, len(claims))
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := d.now()
		for _, claim := range claims {
			link := &HashLink{}
			err := tx.Where("community_id = ? AND hash_key = ?", communityID, claim.Key).First(link).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				link = &HashLink{
					CommunityID: communityID,
					HashKey:     claim.Key,
					Address:     address,
					ExpiresAt:   claim.ExpiresAt,
				}
				if err := tx.Create(link).Error; err != nil {
					return fmt.Errorf("failed to create hash link: %w", err)
				}
			case err != nil:
				return err
			case link.Address == address || !now.Before(link.ExpiresAt) || takeOver:
				link.Address = address
				link.ExpiresAt = claim.ExpiresAt
				if err := tx.Save(link).Error; err != nil {
					return fmt.Errorf("failed to update hash link: %w", err)
				}
			}
			owners[claim.Key] = link.Address
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return owners, nil
}
