package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/layer-3/scorer/core"
	"gorm.io/gorm"
)

// UpsertPassport finds or creates the passport for (communityID, address)
// and stamps it with the current request time.
func (d *Database) UpsertPassport(ctx context.Context, communityID uint, address string) (*core.Passport, error) {
	row := &Passport{}
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.FirstOrCreate(row, Passport{CommunityID: communityID, Address: address})
		if result.Error != nil {
			return fmt.Errorf("failed to find or create passport: %w", result.Error)
		}
		row.RequestedAt = d.now()
		return tx.Model(row).Update("requested_at", row.RequestedAt).Error
	})
	if err != nil {
		return nil, err
	}
	return row.toCore(), nil
}

func (d *Database) GetPassport(ctx context.Context, communityID uint, address string) (*core.Passport, error) {
	row := &Passport{}
	result := d.db.WithContext(ctx).
		Where("community_id = ? AND address = ?", communityID, address).
		First(row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, result.Error
	}
	return row.toCore(), nil
}

// SaveStamps replaces the stored stamps of a passport
func (d *Database) SaveStamps(ctx context.Context, communityID uint, address string, stamps []core.Stamp) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := &Passport{}
		result := tx.Where("community_id = ? AND address = ?", communityID, address).First(row)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return core.ErrNotFound
			}
			return result.Error
		}
		row.Stamps = stamps
		if err := tx.Save(row).Error; err != nil {
			return fmt.Errorf("failed to save stamps: %w", err)
		}
		return nil
	})
}

func (d *Database) CountPassports(ctx context.Context, communityID uint) (int64, error) {
	var count int64
	result := d.db.WithContext(ctx).Model(&Passport{}).Where("community_id = ?", communityID).Count(&count)
	return count, result.Error
}
