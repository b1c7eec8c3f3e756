package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/layer-3/scorer/core"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// scoreDecimals is the fixed precision of stored and rendered scores
const scoreDecimals = 9

// ResetScore overwrites the score for (communityID, address) with a
// PROCESSING placeholder owned by submissionID.
func (d *Database) ResetScore(ctx context.Context, communityID uint, address, submissionID string) (*core.Score, error) {
	row := &Score{}
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.FirstOrCreate(row, Score{CommunityID: communityID, Address: address})
		if result.Error != nil {
			return fmt.Errorf("failed to find or create score: %w", result.Error)
		}
		updates := map[string]any{
			"value":                nil,
			"status":               string(core.ScoreStatusProcessing),
			"last_score_timestamp": nil,
			"evidence":             nil,
			"error":                nil,
			"submission_id":        submissionID,
		}
		if err := tx.Model(row).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to reset score: %w", err)
		}
		return tx.First(row, row.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return row.toCore()
}

func (d *Database) GetScore(ctx context.Context, communityID uint, address string) (*core.Score, error) {
	row := &Score{}
	result := d.db.WithContext(ctx).
		Where("community_id = ? AND address = ?", communityID, address).
		First(row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, core.ErrNotFound
		}
		return nil, result.Error
	}
	return row.toCore()
}

// FinishScore writes a terminal score only while the row is still
// PROCESSING for the same submission. Superseded or already finished rows
// are left untouched and false is returned.
func (d *Database) FinishScore(ctx context.Context, score *core.Score) (bool, error) {
	if !score.Status.Terminal() {
		return false, fmt.Errorf("cannot finish score with status %s", score.Status)
	}

	updates := map[string]any{
		"value":                nil,
		"status":               string(score.Status),
		"last_score_timestamp": score.LastScoreTimestamp,
		"evidence":             nil,
		"error":                score.Error,
	}
	if score.Value.Valid {
		updates["value"] = score.Value.Decimal.StringFixed(scoreDecimals)
	}
	if len(score.Evidence) > 0 {
		updates["evidence"] = string(score.Evidence)
	}

	result := d.db.WithContext(ctx).Model(&Score{}).
		Where(
			"community_id = ? AND address = ? AND submission_id = ? AND status = ?",
			score.CommunityID,
			score.Address,
			score.SubmissionID,
			string(core.ScoreStatusProcessing),
		).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to finish score: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (s Score) toCore() (*core.Score, error) {
	ret := &core.Score{
		CommunityID:        s.CommunityID,
		Address:            s.Address,
		Status:             core.ScoreStatus(s.Status),
		LastScoreTimestamp: s.LastScoreTimestamp,
		Error:              s.Error,
		SubmissionID:       s.SubmissionID,
	}
	if s.Value != nil {
		value, err := decimal.NewFromString(*s.Value)
		if err != nil {
			return nil, fmt.Errorf("stored score value %q: %w", *s.Value, err)
		}
		ret.Value = decimal.NewNullDecimal(value)
	}
	if s.Evidence != nil {
		ret.Evidence = json.RawMessage(*s.Evidence)
	}
	return ret, nil
}
