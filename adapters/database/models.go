package database

import (
	"time"

	"github.com/layer-3/scorer/core"
)

// MigrateModels lists every table created on startup
var MigrateModels = []any{
	&Account{},
	&APIKey{},
	&Community{},
	&Passport{},
	&Score{},
	&HashLink{},
}

type Account struct {
	ID        uint   `gorm:"primarykey"`
	Address   string `gorm:"uniqueIndex;size:42"`
	CreatedAt time.Time
}

func (Account) TableName() string {
	return "account"
}

func (a Account) toCore() *core.Account {
	return &core.Account{ID: a.ID, Address: a.Address, CreatedAt: a.CreatedAt}
}

// APIKey stores only the SHA-256 of the issued key
type APIKey struct {
	ID        string `gorm:"primarykey"`
	AccountID uint   `gorm:"index"`
	Name      string
	Prefix    string
	HashedKey string `gorm:"uniqueIndex"`
	CreatedAt time.Time
}

func (APIKey) TableName() string {
	return "api_key"
}

type Community struct {
	ID          uint `gorm:"primarykey"`
	AccountID   uint `gorm:"index"`
	Name        string
	Description string
	Ruleset     core.Ruleset `gorm:"serializer:json"`
	CreatedAt   time.Time
}

func (Community) TableName() string {
	return "community"
}

func (c Community) toCore() *core.Community {
	return &core.Community{
		ID:          c.ID,
		AccountID:   c.AccountID,
		Name:        c.Name,
		Description: c.Description,
		Ruleset:     c.Ruleset,
		CreatedAt:   c.CreatedAt,
	}
}

type Passport struct {
	ID          uint         `gorm:"primarykey"`
	CommunityID uint         `gorm:"uniqueIndex:idx_passport_community_address"`
	Address     string       `gorm:"uniqueIndex:idx_passport_community_address;size:42"`
	Stamps      []core.Stamp `gorm:"serializer:json"`
	RequestedAt time.Time
}

func (Passport) TableName() string {
	return "passport"
}

func (p Passport) toCore() *core.Passport {
	return &core.Passport{
		ID:          p.ID,
		CommunityID: p.CommunityID,
		Address:     p.Address,
		Stamps:      p.Stamps,
		RequestedAt: p.RequestedAt,
	}
}

// Score keeps the value as text so no precision is lost to floating point
type Score struct {
	ID                 uint   `gorm:"primarykey"`
	CommunityID        uint   `gorm:"uniqueIndex:idx_score_community_address"`
	Address            string `gorm:"uniqueIndex:idx_score_community_address;size:42"`
	Value              *string
	Status             string `gorm:"index"`
	LastScoreTimestamp *time.Time
	Evidence           *string
	Error              *string
	SubmissionID       string
	UpdatedAt          time.Time
}

func (Score) TableName() string {
	return "score"
}

// HashLink records which address owns a deduplication key in a community
type HashLink struct {
	ID          uint   `gorm:"primarykey"`
	CommunityID uint   `gorm:"uniqueIndex:idx_hash_link_community_key"`
	HashKey     string `gorm:"uniqueIndex:idx_hash_link_community_key"`
	Address     string `gorm:"index;size:42"`
	ExpiresAt   time.Time
}

func (HashLink) TableName() string {
	return "hash_link"
}
