// Package event defines the Event type delivered by a live session.
//
// It is kept apart from pkg/webcast so that internal packages can depend on
// the event shape without importing the transport.
package event

import "time"

// Type identifies what happened in the live room.
type Type string

const (
	// Connect is delivered once per session, right after the relay accepted it.
	Connect Type = "connect"

	// Comment is a chat message.
	Comment Type = "comment"

	// Gift is a gift sent to the broadcaster. Streak-capable gifts arrive
	// once per tick while the streak is running.
	Gift Type = "gift"

	// Join indicates a participant entered the room.
	Join Type = "join"

	// Disconnect is delivered last when the session ends.
	Disconnect Type = "disconnect"
)

// User is the participant that acted.
type User struct {
	// UniqueID is the @handle, the value compared against the watched user.
	UniqueID string `json:"uniqueId"`

	// Nickname is the display name.
	Nickname string `json:"nickname,omitempty"`
}

// GiftInfo describes the gift type, independent of how many were sent.
type GiftInfo struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Streakable   bool   `json:"streakable"`
	DiamondCount int    `json:"diamondCount,omitempty"`
}

// Event is a single live room event.
type Event struct {
	Type Type `json:"type"`

	// Timestamp is when the client received the event.
	Timestamp time.Time `json:"timestamp"`

	// UniqueID is the broadcaster the session is attached to.
	UniqueID string `json:"unique_id"`

	// RoomID is the live room identifier (connect events).
	RoomID string `json:"room_id,omitempty"`

	// User is the acting participant (comment, gift and join events).
	User User `json:"user,omitzero"`

	// Comment is the chat text (comment events).
	Comment string `json:"comment,omitempty"`

	// Gift is set for gift events.
	Gift *GiftInfo `json:"gift,omitempty"`

	// RepeatCount is the running streak count for gift events.
	RepeatCount int `json:"repeat_count,omitempty"`

	// Streaking is true while a streak-capable gift streak is still running.
	Streaking bool `json:"streaking,omitempty"`

	// Reason explains why a session ended (disconnect events).
	Reason string `json:"reason,omitempty"`
}
