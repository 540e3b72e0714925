package webcast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/tiktokalert/tiktokalert-go/pkg/webcast/event"
)

// Relay frame types.
const (
	frameConnected = "connected"
	frameError     = "error"
	frameChat      = "chat"
	frameGift      = "gift"
	frameMember    = "member"
	frameStreamEnd = "streamEnd"
)

// Relay error codes.
const (
	codeUserOffline = "user_offline"
)

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// flexString accepts both JSON strings and numbers. Relays disagree on
// whether room ids are quoted.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

type connectedData struct {
	RoomID flexString `json:"roomId"`
}

type errorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type chatData struct {
	User    event.User `json:"user"`
	Comment string     `json:"comment"`
}

type giftData struct {
	User        event.User     `json:"user"`
	Gift        event.GiftInfo `json:"gift"`
	RepeatCount int            `json:"repeatCount"`
	RepeatEnd   bool           `json:"repeatEnd"`
}

type memberData struct {
	User event.User `json:"user"`
}

func decodeFrame(raw []byte) (frame, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if f.Type == "" {
		return frame{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return f, nil
}

func (f frame) decodeData(v any) error {
	if len(f.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(f.Data, v); err != nil {
		return fmt.Errorf("%w: %s data: %v", ErrMalformedFrame, f.Type, err)
	}
	return nil
}

// handshakeError converts a rejected handshake into a sentinel error.
func (f frame) handshakeError() error {
	var d errorData
	if err := f.decodeData(&d); err != nil {
		return err
	}
	if d.Code == codeUserOffline {
		return fmt.Errorf("%w: %s", ErrUserOffline, d.Message)
	}
	return fmt.Errorf("%w: %s: %s", ErrRelay, d.Code, d.Message)
}

// toEvent converts a room frame into an Event. ok is false for frame types
// this package does not surface.
func (f frame) toEvent(uniqueID string, now time.Time) (ev event.Event, ok bool, err error) {
	ev = event.Event{UniqueID: uniqueID, Timestamp: now}

	switch f.Type {
	case frameChat:
		var d chatData
		if err := f.decodeData(&d); err != nil {
			return ev, false, err
		}
		ev.Type = event.Comment
		ev.User = d.User
		ev.Comment = d.Comment

	case frameGift:
		var d giftData
		if err := f.decodeData(&d); err != nil {
			return ev, false, err
		}
		gift := d.Gift
		ev.Type = event.Gift
		ev.User = d.User
		ev.Gift = &gift
		ev.RepeatCount = d.RepeatCount
		ev.Streaking = gift.Streakable && !d.RepeatEnd

	case frameMember:
		var d memberData
		if err := f.decodeData(&d); err != nil {
			return ev, false, err
		}
		ev.Type = event.Join
		ev.User = d.User

	case frameStreamEnd:
		ev.Type = event.Disconnect
		ev.Reason = "stream ended"

	default:
		return ev, false, nil
	}

	return ev, true, nil
}

func (f frame) String() string {
	return f.Type + " (" + strconv.Itoa(len(f.Data)) + " bytes)"
}
