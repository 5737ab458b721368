package launch

import (
	"context"
	"database/sql"
	"time"
)

// Record is one successful launch. Rows are append-only and never updated.
type Record struct {
	AssistantID   int64
	AssistantName string
	GroupID       string
	Owner         string
	UserEmail     string
	UserName      string
	Role          string
	CreatedAt     int64
}

// Ledger is the append-only audit sink for launches. Append failures are
// logged by the caller and never block the redirect.
type Ledger interface {
	Append(ctx context.Context, rec Record) error
}

type SQLLedger struct{ db *sql.DB }

func NewSQLLedger(db *sql.DB) *SQLLedger { return &SQLLedger{db: db} }

func (l *SQLLedger) Append(ctx context.Context, rec Record) error {
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO lti_launches (assistant_id, assistant_name, group_id, owner, user_email, user_name, role, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rec.AssistantID, rec.AssistantName, rec.GroupID, rec.Owner,
		rec.UserEmail, rec.UserName, rec.Role, rec.CreatedAt)
	return err
}
