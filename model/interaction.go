package model

import "time"

// Interaction actions.
const (
	ActionLike   = "like"
	ActionReject = "reject"
	ActionMatch  = "match"
)

// Interaction is the current relationship of ActorID toward TargetID.
// One row per ordered pair; rows are updated in place, never deleted.
// A mutual match is two rows, one per direction, both Action=match and
// Mutual=true.
type Interaction struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorID   int64     `gorm:"uniqueIndex:idx_interaction_pair;not null" json:"actor_id"`
	TargetID  int64     `gorm:"uniqueIndex:idx_interaction_pair;index:idx_interaction_target;not null" json:"target_id"`
	Action    string    `gorm:"size:8;not null" json:"action"`
	Mutual    bool      `gorm:"not null;default:false" json:"mutual"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index:idx_interaction_updated" json:"updated_at"`
}
