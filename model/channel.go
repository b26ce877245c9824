package model

import "time"

// Channel side status values.
const (
	ChannelActive  = "active"
	ChannelBlocked = "blocked"
	ChannelDeleted = "deleted"
)

// Channel is the conversation container of an unordered account pair.
// (LowID, HighID) is the canonical pair key: LowID < HighID always.
// Per-side fields are suffixed with the side they belong to.
type Channel struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	LowID      int64     `gorm:"uniqueIndex:idx_channel_pair;not null" json:"low_id"`
	HighID     int64     `gorm:"uniqueIndex:idx_channel_pair;index:idx_channel_high;not null" json:"high_id"`
	LowStatus  string    `gorm:"size:8;not null;default:active" json:"low_status"`
	HighStatus string    `gorm:"size:8;not null;default:active" json:"high_status"`
	LowPinned  bool      `gorm:"not null;default:false" json:"low_pinned"`
	HighPinned bool      `gorm:"not null;default:false" json:"high_pinned"`
	LowUnread  int       `gorm:"not null;default:0" json:"low_unread"`
	HighUnread int       `gorm:"not null;default:0" json:"high_unread"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CanonicalPair orders two account ids so a pair maps to one channel.
func CanonicalPair(a, b int64) (low, high int64) {
	if a < b {
		return a, b
	}
	return b, a
}

// StatusFor returns the channel status as seen by accountID.
func (c *Channel) StatusFor(accountID int64) string {
	if accountID == c.LowID {
		return c.LowStatus
	}
	return c.HighStatus
}
