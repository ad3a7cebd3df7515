// Package bot turns incoming chat messages into calendar events and replies.
package bot

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"meetline/internal/authz"
	"meetline/internal/calendar"
	"meetline/internal/command"
	"meetline/internal/config"
	"meetline/internal/domain"
	"meetline/internal/events"
	"meetline/internal/repo"
	"meetline/internal/timeparse"
)

const helpText = `Schedule a meeting with a Meet link:

  <title> | <HH:MM> [DD/MM/YYYY] | [duration]

Examples:
  Standup | 9:30
  Planning | 14:00 01/06/2024 | 2h

Times are read at UTC+8. Without a date, a time already past today means
tomorrow. Without a duration the event is zero-length.`

const (
	replyUnauthorized = "You are not allowed to schedule meetings here."
	replyRemoteFailed = "Could not create the meeting. Please try again later."
)

// Bot is the per-process orchestrator. All fields are set once at startup
// and read-only afterwards; each message is an independent unit of work.
type Bot struct {
	DB       *sql.DB
	Repo     repo.Repo
	Events   events.Writer
	Config   *config.Config
	Allow    authz.AllowList
	Calendar calendar.Inserter
	Logger   *log.Logger
	Now      func() time.Time
}

func New(conn *sql.DB, cfg *config.Config, inserter calendar.Inserter) Bot {
	return Bot{
		DB:       conn,
		Repo:     repo.Repo{DB: conn},
		Events:   events.Writer{DB: conn},
		Config:   cfg,
		Allow:    authz.FromList(cfg.Bot.AllowedChats),
		Calendar: inserter,
		Now:      time.Now,
	}
}

func (b Bot) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b Bot) logger() *log.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return log.Default()
}

// HandleMessage runs one command through the pipeline and returns the reply
// text. An empty reply means silence. Failures never escape: every outcome,
// including remote errors, maps to a reply (or logged silence) here.
func (b Bot) HandleMessage(ctx context.Context, msg domain.IncomingMessage) string {
	cmd := command.Parse(msg.Text)
	if cmd.Kind == command.KindHelp {
		return helpText
	}

	if !b.Allow.Allows(msg.ChatID) {
		b.logger().Printf("bot: rejected command from chat %d", msg.ChatID)
		b.appendEvent(ctx, "schedule.rejected", "", msg.ChatID, events.EventPayload{"reason": "unauthorized"})
		return replyUnauthorized
	}

	interval, err := timeparse.Resolve(cmd.Fields.TimeText, cmd.Fields.DurationText, b.now())
	if err != nil {
		b.appendEvent(ctx, "schedule.bad_time", "", msg.ChatID, events.EventPayload{"error": err.Error()})
		return fmt.Sprintf("Cannot read that time: %v", err)
	}

	req := calendar.NewRequest(cmd.Fields.Summary, interval.Start, interval.End)
	res, err := b.Calendar.InsertEvent(ctx, req)
	if err != nil {
		b.logger().Printf("bot: insert event for chat %d failed: %v", msg.ChatID, err)
		b.record(ctx, msg.ChatID, req, calendar.InsertResult{}, domain.ScheduleFailed)
		return replyRemoteFailed
	}
	if res.HTTPStatus != 0 && (res.HTTPStatus < http.StatusOK || res.HTTPStatus >= http.StatusMultipleChoices) {
		b.logger().Printf("bot: insert event for chat %d returned status %d", msg.ChatID, res.HTTPStatus)
		b.record(ctx, msg.ChatID, req, res, domain.ScheduleFailed)
		return replyRemoteFailed
	}
	if res.MeetLink == "" {
		// The event exists but carries no entry point. Possibly an API
		// contract change; warn and stay silent rather than crash.
		b.logger().Printf("bot: event %s created without a conference link", res.EventID)
		b.record(ctx, msg.ChatID, req, res, domain.ScheduleLinkMissing)
		return ""
	}

	b.record(ctx, msg.ChatID, req, res, domain.ScheduleCreated)
	return formatReply(req, res.MeetLink)
}

func formatReply(req calendar.Request, link string) string {
	start := req.Start.In(timeparse.Local)
	end := req.End.In(timeparse.Local)
	title := req.Summary
	if title == "" {
		title = "Meeting"
	}
	window := start.Format("02/01/2006 15:04")
	if !end.Equal(req.Start) {
		window += " - " + end.Format("15:04")
		if end.YearDay() != start.YearDay() || end.Year() != start.Year() {
			window += " " + end.Format("02/01/2006")
		}
	}
	return fmt.Sprintf("%s\n%s\n%s", title, window, link)
}

// record writes the schedule row and its log entry in one transaction.
// Storage trouble is logged, never surfaced: the remote event already
// exists and the user still deserves their reply.
func (b Bot) record(ctx context.Context, chatID int64, req calendar.Request, res calendar.InsertResult, status string) {
	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		b.logger().Printf("bot: begin record tx: %v", err)
		return
	}
	defer tx.Rollback()

	s := domain.Schedule{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Summary:   req.Summary,
		StartAt:   req.Start.Format(time.RFC3339),
		EndAt:     req.End.Format(time.RFC3339),
		Status:    status,
		EventID:   res.EventID,
		MeetLink:  res.MeetLink,
		CreatedAt: b.now().UTC().Format(time.RFC3339),
	}
	if err := b.Repo.InsertSchedule(ctx, tx, s); err != nil {
		b.logger().Printf("bot: insert schedule: %v", err)
		return
	}
	payload := events.EventPayload{"status": status}
	if res.EventID != "" {
		payload["event_id"] = res.EventID
	}
	if err := b.Events.Append(ctx, tx, "schedule."+status, s.ID, chatID, payload); err != nil {
		b.logger().Printf("bot: append event: %v", err)
		return
	}
	if err := tx.Commit(); err != nil {
		b.logger().Printf("bot: commit record tx: %v", err)
	}
}

func (b Bot) appendEvent(ctx context.Context, evtType, scheduleID string, chatID int64, payload events.EventPayload) {
	if err := b.Events.Append(ctx, nil, evtType, scheduleID, chatID, payload); err != nil {
		b.logger().Printf("bot: append event %s: %v", evtType, err)
	}
}
