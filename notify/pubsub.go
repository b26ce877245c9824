// Package notify delivers "you matched" events once a match has committed.
// Delivery is best effort: nothing here can fail or roll back a match.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kasuganosora/matchd/cache"
)

// EventMatch is the type of the event published for a new match.
const EventMatch = "match"

// Event is the payload published on each party's match channel.
type Event struct {
	Type      string    `json:"type"`
	ActorID   int64     `json:"actor_id"`
	TargetID  int64     `json:"target_id"`
	ChannelID int64     `json:"channel_id"`
	At        time.Time `json:"at"`
}

// Topic is the pub/sub channel carrying match events for accountID.
func Topic(accountID int64) string {
	return fmt.Sprintf("match:%d", accountID)
}

// PubSubNotifier publishes match events to both parties' topics. The
// automated side's responder and the human's open SSE streams consume them.
type PubSubNotifier struct {
	ps  cache.PubSub
	now func() time.Time
}

// NewPubSubNotifier creates a PubSubNotifier.
func NewPubSubNotifier(ps cache.PubSub) *PubSubNotifier {
	return &PubSubNotifier{ps: ps, now: time.Now}
}

// NotifyMatch publishes the event to the actor and then the target.
func (n *PubSubNotifier) NotifyMatch(ctx context.Context, actorID, targetID, channelID int64) error {
	payload, err := json.Marshal(Event{
		Type:      EventMatch,
		ActorID:   actorID,
		TargetID:  targetID,
		ChannelID: channelID,
		At:        n.now().UTC(),
	})
	if err != nil {
		return err
	}
	for _, id := range []int64{actorID, targetID} {
		if err := n.ps.Publish(ctx, Topic(id), string(payload)); err != nil {
			return fmt.Errorf("notify: publish to %d: %w", id, err)
		}
	}
	return nil
}
