package model

import "time"

// Account kinds.
const (
	KindHuman = "human"
	KindBot   = "bot"
)

// Account status codes.
const (
	StatusSuspended = 0
	StatusNormal    = 1
)

// Account is a registered user or an automated companion account.
// Active and Status carry no column defaults: gorm skips zero values on
// insert, which would otherwise resurrect a suspended account.
// LikesGiven, Matches and Rejects are maintained incrementally by the
// matching engine and never drop below zero.
type Account struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username   string    `gorm:"uniqueIndex;size:32;not null" json:"username"`
	Kind       string    `gorm:"size:8;not null;default:human" json:"kind"`
	Active     bool      `gorm:"not null" json:"active"`
	Status     int       `gorm:"not null" json:"status"` // 0=suspended 1=normal
	LikesGiven int64     `gorm:"not null;default:0" json:"likes_given"`
	Matches    int64     `gorm:"not null;default:0" json:"matches"`
	Rejects    int64     `gorm:"not null;default:0" json:"rejects"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsBot reports whether the account is automated.
func (a *Account) IsBot() bool { return a.Kind == KindBot }

// Available reports whether others may interact with the account.
func (a *Account) Available() bool { return a.Active && a.Status == StatusNormal }
