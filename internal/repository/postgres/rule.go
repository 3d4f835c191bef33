package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/argussec/argus/internal/domain/event"
	"github.com/argussec/argus/internal/pkg/errors"
)

type RuleRepository struct {
	db *sql.DB
}

func NewRuleRepository(db *sql.DB) event.RuleRepository {
	return &RuleRepository{db: db}
}

const ruleColumns = `id, name, event_type, conditions, threshold, time_window_minutes,
	is_active, actions, last_fired_at, created_at, updated_at`

func (r *RuleRepository) Create(ctx context.Context, rule *event.AlertRule) (string, error) {
	conditions, actions, err := encodeRule(rule)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO alert_rules
			(id, name, event_type, conditions, threshold, time_window_minutes,
			 is_active, actions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.EventType, conditions, rule.Threshold, rule.TimeWindowMinutes,
		rule.IsActive, actions, rule.CreatedAt.Format(time.RFC3339), rule.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return "", errors.StoreUnavailable("Failed to create alert rule", err)
	}
	return rule.ID, nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*event.AlertRule, error) {
	query := "SELECT " + ruleColumns + " FROM alert_rules WHERE id = ?"

	rule, err := scanRule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok && appErr.Code == errors.ErrCodeNotFound {
			return nil, nil
		}
		return nil, err
	}
	return rule, nil
}

func (r *RuleRepository) Update(ctx context.Context, rule *event.AlertRule) error {
	conditions, actions, err := encodeRule(rule)
	if err != nil {
		return err
	}

	query := `
		UPDATE alert_rules
		SET name = ?, event_type = ?, conditions = ?, threshold = ?,
			time_window_minutes = ?, is_active = ?, actions = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		rule.Name, rule.EventType, conditions, rule.Threshold,
		rule.TimeWindowMinutes, rule.IsActive, actions, rule.UpdatedAt.Format(time.RFC3339),
		rule.ID,
	)
	if err != nil {
		return errors.StoreUnavailable("Failed to update alert rule", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.StoreUnavailable("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Alert rule")
	}
	return nil
}

func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM alert_rules WHERE id = ?", id)
	if err != nil {
		return errors.StoreUnavailable("Failed to delete alert rule", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.StoreUnavailable("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Alert rule")
	}
	return nil
}

func (r *RuleRepository) List(ctx context.Context) ([]*event.AlertRule, error) {
	return r.list(ctx, "SELECT "+ruleColumns+" FROM alert_rules ORDER BY name")
}

func (r *RuleRepository) ListActive(ctx context.Context) ([]*event.AlertRule, error) {
	return r.list(ctx, "SELECT "+ruleColumns+" FROM alert_rules WHERE is_active = ? ORDER BY name", true)
}

func (r *RuleRepository) list(ctx context.Context, query string, args ...interface{}) ([]*event.AlertRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.StoreUnavailable("Failed to list alert rules", err)
	}
	defer rows.Close()

	rules := make([]*event.AlertRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StoreUnavailable("Failed to iterate alert rules", err)
	}
	return rules, nil
}

func (r *RuleRepository) MarkFired(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE alert_rules SET last_fired_at = ? WHERE id = ?",
		at.Format(time.RFC3339), id)
	if err != nil {
		return errors.StoreUnavailable("Failed to mark rule fired", err)
	}
	return nil
}

func (r *RuleRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM alert_rules").Scan(&count); err != nil {
		return 0, errors.StoreUnavailable("Failed to count alert rules", err)
	}
	return count, nil
}

func encodeRule(rule *event.AlertRule) (string, string, error) {
	conditions := "{}"
	if rule.Conditions != nil {
		data, err := json.Marshal(rule.Conditions)
		if err != nil {
			return "", "", errors.Internal("Failed to encode rule conditions", err)
		}
		conditions = string(data)
	}

	data, err := json.Marshal(rule.Actions)
	if err != nil {
		return "", "", errors.Internal("Failed to encode rule actions", err)
	}
	return conditions, string(data), nil
}

func scanRule(row rowScanner) (*event.AlertRule, error) {
	var rule event.AlertRule
	var conditions, actions, createdAt, updatedAt string
	var lastFiredAt sql.NullString

	err := row.Scan(
		&rule.ID, &rule.Name, &rule.EventType, &conditions, &rule.Threshold,
		&rule.TimeWindowMinutes, &rule.IsActive, &actions, &lastFiredAt, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("Alert rule")
	}
	if err != nil {
		return nil, errors.StoreUnavailable("Failed to scan alert rule", err)
	}

	if conditions != "" && conditions != "{}" {
		_ = json.Unmarshal([]byte(conditions), &rule.Conditions)
	}
	_ = json.Unmarshal([]byte(actions), &rule.Actions)
	rule.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rule.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if lastFiredAt.Valid && lastFiredAt.String != "" {
		if t, err := time.Parse(time.RFC3339, lastFiredAt.String); err == nil {
			rule.LastFiredAt = &t
		}
	}
	return &rule, nil
}
