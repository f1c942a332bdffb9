package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/opbot/internal/db"
	"github.com/ziadkadry99/opbot/internal/interactions"
	"github.com/ziadkadry99/opbot/internal/logging"
)

// timestampLayout sorts lexically, so range filters work on the text column.
const timestampLayout = "2006-01-02 15:04:05.000"

// Store persists interaction outcomes to the interaction_log table.
type Store struct {
	db     *db.DB
	logger *zap.Logger
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB, logger *zap.Logger) *Store {
	return &Store{db: database, logger: logging.OrNop(logger)}
}

// Observe records ev. Failures are logged and never reach the dispatcher.
func (s *Store) Observe(ctx context.Context, ev interactions.Event) {
	if err := s.Log(ctx, FromEvent(ev)); err != nil {
		s.logger.Warn("recording interaction", zap.String("outcome", string(ev.Outcome)), zap.Error(err))
	}
}

// Log inserts a new entry. If entry.ID is empty a UUID is generated, and a
// zero timestamp becomes now.
func (s *Store) Log(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interaction_log (
			id, timestamp, interaction_id, user_id, username,
			command, outcome, detail, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Timestamp.UTC().Format(timestampLayout),
		entry.InteractionID,
		entry.UserID,
		entry.Username,
		entry.Command,
		string(entry.Outcome),
		entry.Detail,
		entry.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("inserting interaction log entry: %w", err)
	}
	return nil
}

// GetByID retrieves a single entry.
func (s *Store) GetByID(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM interaction_log WHERE id = ?`, id)
	return scanInto(row)
}

// QueryFilter controls which entries are returned by Query.
type QueryFilter struct {
	UserID  string
	Command string
	Outcome interactions.Outcome
	Since   *time.Time
	Until   *time.Time
	Limit   int
	Offset  int
}

const columns = "id, timestamp, interaction_id, user_id, username, command, outcome, detail, duration_ms"

// Query returns entries matching the filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Command != "" {
		clauses = append(clauses, "command = ?")
		args = append(args, filter.Command)
	}
	if filter.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, string(filter.Outcome))
	}
	if filter.Since != nil {
		clauses = append(clauses, "timestamp >= ?")
		args = append(args, filter.Since.UTC().Format(timestampLayout))
	}
	if filter.Until != nil {
		clauses = append(clauses, "timestamp <= ?")
		args = append(args, filter.Until.UTC().Format(timestampLayout))
	}

	query := "SELECT " + columns + " FROM interaction_log"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY timestamp DESC, id"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	} else if filter.Offset > 0 {
		query += fmt.Sprintf(" LIMIT -1 OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying interaction log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// DeleteBefore removes all entries older than the given time.
// Returns the number of deleted rows.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM interaction_log WHERE timestamp < ?",
		before.UTC().Format(timestampLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old interaction log entries: %w", err)
	}
	return res.RowsAffected()
}

// CountByOutcome returns the number of entries per outcome recorded at or
// after since. A zero since counts everything.
func (s *Store) CountByOutcome(ctx context.Context, since time.Time) (map[interactions.Outcome]int, error) {
	query := "SELECT outcome, COUNT(*) FROM interaction_log"
	var args []any
	if !since.IsZero() {
		query += " WHERE timestamp >= ?"
		args = append(args, since.UTC().Format(timestampLayout))
	}
	query += " GROUP BY outcome"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("counting interaction outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[interactions.Outcome]int)
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[interactions.Outcome(outcome)] = n
	}
	return counts, rows.Err()
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*Entry, error) {
	var (
		e       Entry
		ts      string
		outcome string
	)

	err := sc.Scan(
		&e.ID, &ts, &e.InteractionID, &e.UserID, &e.Username,
		&e.Command, &outcome, &e.Detail, &e.DurationMS,
	)
	if err != nil {
		return nil, err
	}

	e.Outcome = interactions.Outcome(outcome)
	for _, layout := range []string{timestampLayout, time.DateTime, time.RFC3339Nano} {
		if t, parseErr := time.Parse(layout, ts); parseErr == nil {
			e.Timestamp = t
			break
		}
	}
	return &e, nil
}

// IsNotFound reports whether err means the entry does not exist.
func IsNotFound(err error) bool { return errors.Is(err, sql.ErrNoRows) }
