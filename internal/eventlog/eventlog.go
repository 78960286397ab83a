// Package eventlog is an append-only audit trail of domain events.
package eventlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	TypeAttemptRecorded    = "AttemptRecorded"
	TypeStudyAidGenerated  = "StudyAidGenerated"
	TypeChatMessageSent    = "ChatMessageSent"
	TypeCourseItemUpserted = "CourseItemUpserted"
)

type Event struct {
	Seq       int64           `json:"seq"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// Appender is what services need; tests swap in fakes.
type Appender interface {
	Append(ctx context.Context, typ, key string, data any) error
}

type Repo struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepo(db *sql.DB) *Repo { return &Repo{db: db, now: time.Now} }

// Append records one event. key is the aggregate it belongs to, usually a student id.
func (r *Repo) Append(ctx context.Context, typ, key string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("eventlog: encode %s: %w", typ, err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_log (typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4)`,
		typ, key, string(raw), r.now().Unix())
	return err
}

// Since returns up to limit events for key with seq greater than after, oldest first.
func (r *Repo) Since(ctx context.Context, key string, after int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, typ, key, data, created_at FROM event_log
		 WHERE key = $1 AND seq > $2 ORDER BY seq LIMIT $3`,
		key, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e    Event
			data string
			ts   int64
		)
		if err := rows.Scan(&e.Seq, &e.Type, &e.Key, &data, &ts); err != nil {
			return nil, err
		}
		e.Data = json.RawMessage(data)
		e.CreatedAt = time.Unix(ts, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}
