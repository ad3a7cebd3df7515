package domain

// IncomingMessage is one chat message, already extracted from the platform
// envelope by the transport.
type IncomingMessage struct {
	ChatID int64  `json:"chat_id"`
	Text   string `json:"text"`
}

// Schedule statuses.
const (
	ScheduleCreated     = "created"
	ScheduleFailed      = "failed"
	ScheduleLinkMissing = "link_missing"
)

// Schedule is the durable record of one handled scheduling command.
type Schedule struct {
	ID        string `json:"id"`
	ChatID    int64  `json:"chat_id"`
	Summary   string `json:"summary"`
	StartAt   string `json:"start_at" format:"date-time"`
	EndAt     string `json:"end_at" format:"date-time"`
	Status    string `json:"status" enum:"created,failed,link_missing"`
	EventID   string `json:"event_id,omitempty"`
	MeetLink  string `json:"meet_link,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Event is one entry of the append-only log.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	ScheduleID string `json:"schedule_id,omitempty"`
	ChatID     int64  `json:"chat_id"`
	Payload    string `json:"payload_json"`
}
