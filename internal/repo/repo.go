package repo

import (
	"context"
	"database/sql"
	"errors"

	"meetline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const scheduleColumns = `id,chat_id,summary,start_at,end_at,status,COALESCE(event_id,''),COALESCE(meet_link,''),created_at`

func scanSchedule(scan func(dest ...any) error) (domain.Schedule, error) {
	var s domain.Schedule
	err := scan(&s.ID, &s.ChatID, &s.Summary, &s.StartAt, &s.EndAt, &s.Status, &s.EventID, &s.MeetLink, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	return s, err
}

// InsertSchedule stores a schedule record. tx may be nil.
func (r Repo) InsertSchedule(ctx context.Context, tx *sql.Tx, s domain.Schedule) error {
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	_, err := exec(ctx, `INSERT INTO schedules(id,chat_id,summary,start_at,end_at,status,event_id,meet_link,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		s.ID, s.ChatID, s.Summary, s.StartAt, s.EndAt, s.Status, nullable(s.EventID), nullable(s.MeetLink), s.CreatedAt)
	return err
}

func (r Repo) GetSchedule(ctx context.Context, id string) (domain.Schedule, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id=?`, id)
	return scanSchedule(row.Scan)
}

// ListSchedules returns the most recent schedules, newest first.
func (r Repo) ListSchedules(ctx context.Context, limit int) ([]domain.Schedule, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+scheduleColumns+` FROM schedules ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// LatestEvents returns the newest events, optionally filtered by type.
func (r Repo) LatestEvents(ctx context.Context, limit int, evtType string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id,ts,type,COALESCE(schedule_id,''),chat_id,payload_json FROM events`
	var args []any
	if evtType != "" {
		query += ` WHERE type=?`
		args = append(args, evtType)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.ScheduleID, &e.ChatID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
