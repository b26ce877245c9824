package model

import "time"

// Block records that BlockerID blocked BlockedID. Not symmetric.
type Block struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BlockedID int64     `gorm:"uniqueIndex:idx_block_pair;not null" json:"blocked_id"`
	BlockerID int64     `gorm:"uniqueIndex:idx_block_pair;index:idx_block_blocker;not null" json:"blocker_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
