// Package audit keeps a local trail of submissions and their outcomes in
// SQLite. It is a record of what was asked, not a task store: sessions are
// never resumed from it.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shhayash-work/copilot-qna/pkg/task"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	EventSubmit     = "task_submit"
	EventStream     = "task_stream"
	EventFinished   = "task_finished"
	EventCardFailed = "agent_card_failed"
	EventPollFailed = "poll_failed"
)

type Entry struct {
	ID        string    `gorm:"primaryKey;column:id"`
	Timestamp time.Time `gorm:"column:timestamp;not null;index:idx_audit_timestamp"`
	EventType string    `gorm:"column:event_type;not null"`
	TaskID    string    `gorm:"column:task_id;not null;default:'';index:idx_audit_task"`
	AgentName string    `gorm:"column:agent_name;not null;default:''"`
	State     string    `gorm:"column:state;not null;default:''"`
	Attempts  int       `gorm:"column:attempts;not null;default:0"`
	LatencyMS int64     `gorm:"column:latency_ms;not null;default:0"`
	Detail    string    `gorm:"column:detail;not null;default:''"`
}

func (Entry) TableName() string {
	return "audit_log"
}

type Logger struct {
	db *gorm.DB
}

func New(db *gorm.DB) (*Logger, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("audit: running migrations: %w", err)
	}

	return &Logger{db: db}, nil
}

// Open opens (creating if needed) the SQLite database at dsn.
func Open(dsn string) (*Logger, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("audit: opening %s: %w", dsn, err)
	}
	return New(db)
}

func (l *Logger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (l *Logger) Log(ctx context.Context, e Entry, detail any) error {
	switch v := detail.(type) {
	case nil:
	case string:
		e.Detail = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			e.Detail = fmt.Sprintf("%v", v)
		} else {
			e.Detail = string(b)
		}
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	return l.db.WithContext(ctx).Create(&e).Error
}

// Observe records the orchestrator events worth keeping: submissions,
// finished sessions and failures. Successful polls are not recorded.
// Write failures are logged and never reach the caller.
func (l *Logger) Observe(ctx context.Context, ev task.Event) {
	e := Entry{
		TaskID:    ev.TaskID,
		AgentName: ev.AgentName,
		State:     string(ev.State),
		Attempts:  ev.Attempt,
		LatencyMS: ev.Latency.Milliseconds(),
	}

	switch {
	case ev.Op == task.OpSubmit:
		e.EventType = EventSubmit
	case ev.Op == task.OpStream:
		e.EventType = EventStream
	case ev.Op == task.OpSessionEnd:
		e.EventType = EventFinished
	case ev.Op == task.OpAgentCard && ev.Err != nil:
		e.EventType = EventCardFailed
	case ev.Op == task.OpPoll && ev.Err != nil:
		e.EventType = EventPollFailed
	default:
		return
	}

	var detail any
	if ev.Err != nil {
		detail = map[string]string{"kind": task.ErrorKind(ev.Err), "error": ev.Err.Error()}
	}

	if err := l.Log(ctx, e, detail); err != nil {
		slog.Default().Warn("audit: write failed",
			slog.String("event", e.EventType),
			slog.String("err", err.Error()),
		)
	}
}

func (l *Logger) Query(ctx context.Context, f Filter) ([]Entry, error) {
	q := l.db.WithContext(ctx)

	if f.EventType != "" {
		q = q.Where("event_type = ?", f.EventType)
	}
	if f.TaskID != "" {
		q = q.Where("task_id = ?", f.TaskID)
	}
	if f.AgentName != "" {
		q = q.Where("agent_name = ?", f.AgentName)
	}
	if !f.Since.IsZero() {
		q = q.Where("timestamp >= ?", f.Since)
	}
	if !f.Until.IsZero() {
		q = q.Where("timestamp <= ?", f.Until)
	}

	q = q.Order("timestamp DESC")

	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var entries []Entry
	err := q.Find(&entries).Error
	return entries, err
}

type Filter struct {
	EventType string
	TaskID    string
	AgentName string
	Since     time.Time
	Until     time.Time
	Limit     int
}
