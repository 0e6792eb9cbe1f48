package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action identifies what the admin did
type Action string

const (
	ActionLogin         Action = "login"
	ActionLogout        Action = "logout"
	ActionForcedLogout  Action = "forced_logout"
	ActionResourceWrite Action = "resource_write"
)

// Event is one account activity record
type Event struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	AdminID   string    `json:"admin_id"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	Resource  string    `json:"resource,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// normalize fills generated fields so recorders can assume they are set
func (e *Event) normalize() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
}

// Recorder writes account activity events
type Recorder interface {
	Record(ctx context.Context, event *Event) error
}

// NopRecorder discards events; used in tests and degraded mode
type NopRecorder struct{}

// Record discards the event
func (NopRecorder) Record(ctx context.Context, event *Event) error {
	return nil
}
