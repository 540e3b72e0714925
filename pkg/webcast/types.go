package webcast

import "github.com/tiktokalert/tiktokalert-go/pkg/webcast/event"

// Re-export event types so callers only need to import this package.

// Event is a single live room event.
type Event = event.Event

// EventType identifies the kind of Event.
type EventType = event.Type

// User is the participant that acted.
type User = event.User

// GiftInfo describes a gift.
type GiftInfo = event.GiftInfo

// Event type constants.
const (
	EventConnect    = event.Connect
	EventComment    = event.Comment
	EventGift       = event.Gift
	EventJoin       = event.Join
	EventDisconnect = event.Disconnect
)
