package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/layer-3/scorer/core"
	"gorm.io/gorm"
)

// CreateCommunity inserts community and fills in its ID
func (d *Database) CreateCommunity(ctx context.Context, community *core.Community) error {
	row := &Community{
		AccountID:   community.AccountID,
		Name:        community.Name,
		Description: community.Description,
		Ruleset:     community.Ruleset,
		CreatedAt:   d.now(),
	}
	if err := d.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("failed to create community: %w", err)
	}
	community.ID = row.ID
	community.CreatedAt = row.CreatedAt
	return nil
}

func (d *Database) GetCommunity(ctx context.Context, id uint) (*core.Community, error) {
	row := &Community{}
	result := d.db.WithContext(ctx).First(row, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, core.ErrUnknownCommunity
		}
		return nil, result.Error
	}
	return row.toCore(), nil
}

func (d *Database) ListCommunities(ctx context.Context, accountID uint) ([]core.Community, error) {
	var rows []Community
	result := d.db.WithContext(ctx).Where("account_id = ?", accountID).Order("id").Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	ret := make([]core.Community, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, *row.toCore())
	}
	return ret, nil
}
