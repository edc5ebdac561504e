// Package notification delivers fire-and-forget user notices (toasts) to
// connected browser clients.
package notification

import (
	"sync"

	"github.com/rs/zerolog"
)

// Severity classifies a notice for presentation.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// EventToast is the websocket message type carrying a Notice.
const EventToast = "toast"

// Notice is a single user-facing message.
type Notice struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Notifier sends notices. Delivery is best effort and never reported back.
type Notifier interface {
	Notify(severity Severity, message string)
}

// Broadcaster pushes typed messages to every connected client.
type Broadcaster interface {
	Broadcast(msgType string, payload any) error
}

// HubNotifier delivers notices through a Broadcaster.
type HubNotifier struct {
	hub    Broadcaster
	logger zerolog.Logger
}

// NewHubNotifier creates a notifier that broadcasts toasts over hub.
func NewHubNotifier(hub Broadcaster, logger zerolog.Logger) *HubNotifier {
	return &HubNotifier{
		hub:    hub,
		logger: logger.With().Str("component", "notification").Logger(),
	}
}

// Notify broadcasts the notice. Failures are logged and dropped.
func (n *HubNotifier) Notify(severity Severity, message string) {
	n.logger.Debug().Str("severity", string(severity)).Str("message", message).Msg("Sending notice")
	if n.hub == nil {
		return
	}
	if err := n.hub.Broadcast(EventToast, Notice{Severity: severity, Message: message}); err != nil {
		n.logger.Warn().Err(err).Msg("Failed to broadcast notice")
	}
}

// Nop discards every notice.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(Severity, string) {}

// Recorder keeps every notice it receives.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify appends the notice.
func (r *Recorder) Notify(severity Severity, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Severity: severity, Message: message})
}

// Notices returns a copy of the recorded notices in arrival order.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Last returns the most recent notice.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// Reset forgets recorded notices.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = nil
}
