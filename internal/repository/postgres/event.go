package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/argussec/argus/internal/domain/event"
	"github.com/argussec/argus/internal/pkg/errors"
)

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) event.Repository {
	return &EventRepository{db: db}
}

const eventColumns = `id, event_type, severity, source, title, description, metadata,
	user_id, ip_address, user_agent, created_at, is_resolved, resolved_by, resolved_at`

func (r *EventRepository) Insert(ctx context.Context, ev *event.SecurityEvent) error {
	metadata := "{}"
	if ev.Metadata != nil {
		if data, err := json.Marshal(ev.Metadata); err == nil {
			metadata = string(data)
		}
	}

	query := `
		INSERT INTO security_events
			(id, event_type, severity, source, title, description, metadata,
			 user_id, ip_address, user_agent, created_at, is_resolved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		ev.ID, ev.EventType, ev.Severity, ev.Source, ev.Title, ev.Description, metadata,
		ev.UserID, ev.IPAddress, ev.UserAgent, ev.CreatedAt.Format(time.RFC3339), ev.IsResolved,
	)
	if err != nil {
		return errors.StoreUnavailable("Failed to insert event", err)
	}
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*event.SecurityEvent, error) {
	query := "SELECT " + eventColumns + " FROM security_events WHERE id = ?"

	ev, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.ErrCodeNotFound {
			return nil, nil
		}
		return nil, err
	}
	return ev, nil
}

func (r *EventRepository) List(ctx context.Context, filter event.Filter, limit, offset int) ([]*event.SecurityEvent, int64, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	if filter.EventType != "" {
		where = append(where, "event_type = ?")
		args = append(args, filter.EventType)
	}
	if filter.Severity != "" {
		where = append(where, "severity = ?")
		args = append(args, filter.Severity)
	}
	if filter.UserID != nil {
		where = append(where, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.Resolved != nil {
		where = append(where, "is_resolved = ?")
		args = append(args, *filter.Resolved)
	}
	if filter.From != nil {
		where = append(where, "created_at >= ?")
		args = append(args, filter.From.Format(time.RFC3339))
	}
	if filter.To != nil {
		where = append(where, "created_at <= ?")
		args = append(args, filter.To.Format(time.RFC3339))
	}
	clause := strings.Join(where, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM security_events WHERE %s", clause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.StoreUnavailable("Failed to count events", err)
	}

	query := fmt.Sprintf("SELECT "+eventColumns+` FROM security_events
		WHERE %s ORDER BY created_at DESC LIMIT ? OFFSET ?`, clause)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.StoreUnavailable("Failed to list events", err)
	}
	defer rows.Close()

	events := make([]*event.SecurityEvent, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.StoreUnavailable("Failed to iterate events", err)
	}
	return events, total, nil
}

func (r *EventRepository) CountMatching(ctx context.Context, rule *event.AlertRule, since time.Time) (int, error) {
	where := []string{"created_at >= ?"}
	args := []interface{}{since.Format(time.RFC3339)}

	if rule.EventType != event.Wildcard {
		where = append(where, "event_type = ?")
		args = append(args, rule.EventType)
	}
	// Only indexed columns are filtered in SQL; metadata conditions are
	// checked in Go against the decoded rows
	if sev, ok := rule.Conditions["severity"]; ok {
		where = append(where, "severity = ?")
		args = append(args, sev)
	}
	if src, ok := rule.Conditions["source"]; ok {
		where = append(where, "source = ?")
		args = append(args, src)
	}

	metadataConds := false
	for key := range rule.Conditions {
		if key != "severity" && key != "source" {
			metadataConds = true
		}
	}

	clause := strings.Join(where, " AND ")
	if !metadataConds {
		var count int
		query := fmt.Sprintf("SELECT COUNT(*) FROM security_events WHERE %s", clause)
		if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
			return 0, errors.StoreUnavailable("Failed to count matching events", err)
		}
		return count, nil
	}

	query := fmt.Sprintf("SELECT "+eventColumns+" FROM security_events WHERE %s", clause)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, errors.StoreUnavailable("Failed to query matching events", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return 0, err
		}
		if rule.Matches(ev) {
			count++
		}
	}
	if err := rows.Err(); err != nil {
		return 0, errors.StoreUnavailable("Failed to iterate matching events", err)
	}
	return count, nil
}

func (r *EventRepository) Resolve(ctx context.Context, id, resolvedBy string, at time.Time) error {
	// The is_resolved guard makes resolution one-way and idempotent
	query := `
		UPDATE security_events SET is_resolved = ?, resolved_by = ?, resolved_at = ?
		WHERE id = ? AND is_resolved = ?
	`

	_, err := r.db.ExecContext(ctx, query, true, resolvedBy, at.Format(time.RFC3339), id, false)
	if err != nil {
		return errors.StoreUnavailable("Failed to resolve event", err)
	}
	return nil
}

func (r *EventRepository) CountBySeverity(ctx context.Context, resolved *bool) (map[string]int, error) {
	query := "SELECT severity, COUNT(*) FROM security_events"
	args := []interface{}{}
	if resolved != nil {
		query += " WHERE is_resolved = ?"
		args = append(args, *resolved)
	}
	query += " GROUP BY severity"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.StoreUnavailable("Failed to count events by severity", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, errors.StoreUnavailable("Failed to scan severity count", err)
		}
		counts[severity] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StoreUnavailable("Failed to iterate severity counts", err)
	}
	return counts, nil
}

func (r *EventRepository) PurgeResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM security_events WHERE is_resolved = ? AND created_at < ?",
		true, cutoff.Format(time.RFC3339))
	if err != nil {
		return 0, errors.StoreUnavailable("Failed to purge events", err)
	}
	return result.RowsAffected()
}

func scanEvent(row rowScanner) (*event.SecurityEvent, error) {
	var ev event.SecurityEvent
	var metadata, createdAt string
	var userID sql.NullInt64
	var ipAddress, userAgent, resolvedBy, resolvedAt sql.NullString

	err := row.Scan(
		&ev.ID, &ev.EventType, &ev.Severity, &ev.Source, &ev.Title, &ev.Description, &metadata,
		&userID, &ipAddress, &userAgent, &createdAt, &ev.IsResolved, &resolvedBy, &resolvedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Event")
	}
	if err != nil {
		return nil, errors.StoreUnavailable("Failed to scan event", err)
	}

	if metadata != "" && metadata != "{}" {
		_ = json.Unmarshal([]byte(metadata), &ev.Metadata)
	}
	if userID.Valid {
		ev.UserID = &userID.Int64
	}
	ev.IPAddress = ipAddress.String
	ev.UserAgent = userAgent.String
	ev.ResolvedBy = resolvedBy.String
	ev.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if resolvedAt.Valid && resolvedAt.String != "" {
		if t, err := time.Parse(time.RFC3339, resolvedAt.String); err == nil {
			ev.ResolvedAt = &t
		}
	}
	return &ev, nil
}
