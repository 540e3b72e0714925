// Package monitor turns live room events into activity log lines and
// notifications for the watched user.
package monitor

import (
	"fmt"
	"time"

	"github.com/tiktokalert/tiktokalert-go/internal/config"
	"github.com/tiktokalert/tiktokalert-go/pkg/webcast/event"
)

// Logger receives one formatted activity line.
type Logger interface {
	Print(msg string)
}

// Notifier receives one notification body. Implementations must not block.
type Notifier interface {
	Notify(message string)
}

// Monitor holds the per-run handler state. It is not safe for concurrent
// use; events are expected one at a time from the session loop.
type Monitor struct {
	broadcasterID string
	watchedUserID string
	log           Logger
	notifier      Notifier
}

// New returns a Monitor for cfg.
func New(cfg config.Config, log Logger, notifier Notifier) *Monitor {
	return &Monitor{
		broadcasterID: cfg.BroadcasterID,
		watchedUserID: cfg.WatchedUserID,
		log:           log,
		notifier:      notifier,
	}
}

// Handle dispatches ev to the matching handler. Unknown types are ignored.
func (m *Monitor) Handle(ev event.Event) {
	switch ev.Type {
	case event.Connect:
		m.onConnect(ev)
	case event.Comment:
		m.onComment(ev)
	case event.Gift:
		m.onGift(ev)
	case event.Join:
		m.onJoin(ev)
	case event.Disconnect:
		m.onDisconnect(ev)
	}
}

func (m *Monitor) onConnect(ev event.Event) {
	id := ev.UniqueID
	if id == "" {
		id = m.broadcasterID
	}
	m.log.Print(FormatConnect(id, ev.RoomID))
}

func (m *Monitor) onComment(ev event.Event) {
	sender := ev.User.UniqueID
	m.log.Print(FormatComment(sender, ev.Comment))
	if m.isWatched(sender) {
		m.notifier.Notify(ChatNotification(sender, ev.Comment))
	}
}

func (m *Monitor) onGift(ev event.Event) {
	if line, ok := FormatGift(ev); ok {
		m.log.Print(line)
	}
}

func (m *Monitor) onJoin(ev event.Event) {
	sender := ev.User.UniqueID
	m.log.Print(FormatJoin(sender))
	if m.isWatched(sender) {
		m.notifier.Notify(JoinNotification(sender, m.broadcasterID))
	}
}

func (m *Monitor) onDisconnect(ev event.Event) {
	m.log.Print(FormatDisconnect(m.broadcasterID))
}

// Offline logs the retry notice shown while the broadcaster is not live.
func (m *Monitor) Offline(wait time.Duration) {
	m.log.Print(FormatOffline(m.broadcasterID, wait))
}

func (m *Monitor) isWatched(uniqueID string) bool {
	return uniqueID != "" && uniqueID == m.watchedUserID
}

// FormatConnect is logged once per established session.
func FormatConnect(broadcasterID, roomID string) string {
	return fmt.Sprintf("Conectado a @%s (Room ID: %s)", broadcasterID, roomID)
}

// FormatComment is logged for every chat message.
func FormatComment(sender, comment string) string {
	return fmt.Sprintf("%s -> %s", sender, comment)
}

// FormatJoin is logged for every participant that enters the room.
func FormatJoin(sender string) string {
	return fmt.Sprintf("🟢 %s Conectado", sender)
}

// FormatDisconnect is logged when the session drops.
func FormatDisconnect(broadcasterID string) string {
	return fmt.Sprintf("@%s se desconectó. Reintentando conexión...", broadcasterID)
}

// FormatOffline is logged before each offline wait.
func FormatOffline(broadcasterID string, wait time.Duration) string {
	return fmt.Sprintf("El usuario @%s está fuera de línea. Reintentando...(%s en reintentar)", broadcasterID, formatWait(wait))
}

// formatWait renders whole minutes as "5min" and anything else as a
// time.Duration string.
func formatWait(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%dmin", d/time.Minute)
	}
	return d.String()
}

// FormatGift returns the gift line, or false for the intermediate ticks of a
// running streak, which are not logged.
func FormatGift(ev event.Event) (string, bool) {
	if ev.Gift == nil {
		return "", false
	}
	sender := ev.User.UniqueID
	switch {
	case ev.Gift.Streakable && ev.Streaking:
		return "", false
	case ev.Gift.Streakable:
		return fmt.Sprintf("🎁 %s envió %d \"%s\" (%d)", sender, ev.RepeatCount, ev.Gift.Name, ev.Gift.ID), true
	default:
		return fmt.Sprintf("🎁🎁 %s envió \"%s\" (%d)", sender, ev.Gift.Name, ev.Gift.ID), true
	}
}

// ChatNotification is pushed when the watched user comments.
func ChatNotification(sender, comment string) string {
	return fmt.Sprintf("(chat) %s : %s", sender, comment)
}

// JoinNotification is pushed when the watched user joins.
func JoinNotification(sender, broadcasterID string) string {
	return fmt.Sprintf("%s conectado en %s", sender, broadcasterID)
}
