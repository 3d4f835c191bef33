package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/argussec/argus/internal/domain/indicator"
	"github.com/argussec/argus/internal/pkg/errors"
)

type IndicatorRepository struct {
	db *sql.DB
}

func NewIndicatorRepository(db *sql.DB) indicator.Repository {
	return &IndicatorRepository{db: db}
}

func (r *IndicatorRepository) Upsert(ctx context.Context, ind *indicator.ThreatIndicator) (string, error) {
	// One row per (type, value, source); a repeat sighting refreshes it
	query := `
		SELECT id FROM threat_indicators
		WHERE type = ? AND value = ? AND source = ?
	`

	var existingID string
	err := r.db.QueryRowContext(ctx, query, ind.Type, ind.Value, ind.Source).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return "", errors.StoreUnavailable("Failed to look up indicator", err)
	}

	if err == sql.ErrNoRows {
		insert := `
			INSERT INTO threat_indicators
				(id, type, value, threat_type, severity, source, confidence, first_seen, last_seen, is_active)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err := r.db.ExecContext(ctx, insert,
			ind.ID, ind.Type, ind.Value, ind.ThreatType, ind.Severity, ind.Source,
			ind.Confidence, ind.FirstSeen.Format(time.RFC3339), ind.LastSeen.Format(time.RFC3339), ind.IsActive,
		)
		if err != nil {
			return "", errors.StoreUnavailable("Failed to insert indicator", err)
		}
		return ind.ID, nil
	}

	update := `
		UPDATE threat_indicators
		SET threat_type = ?, severity = ?, confidence = ?, last_seen = ?, is_active = ?
		WHERE id = ?
	`
	_, err = r.db.ExecContext(ctx, update,
		ind.ThreatType, ind.Severity, ind.Confidence, ind.LastSeen.Format(time.RFC3339), ind.IsActive, existingID,
	)
	if err != nil {
		return "", errors.StoreUnavailable("Failed to update indicator", err)
	}
	return existingID, nil
}

func (r *IndicatorRepository) FindActive(ctx context.Context, typ indicator.Type, value string) ([]*indicator.ThreatIndicator, error) {
	query := `
		SELECT id, type, value, threat_type, severity, source, confidence, first_seen, last_seen, is_active
		FROM threat_indicators
		WHERE type = ? AND value = ? AND is_active = ?
	`

	rows, err := r.db.QueryContext(ctx, query, typ, value, true)
	if err != nil {
		return nil, errors.StoreUnavailable("Failed to query indicators", err)
	}
	defer rows.Close()

	return scanIndicators(rows)
}

func (r *IndicatorRepository) List(ctx context.Context, filter indicator.Filter, limit, offset int) ([]*indicator.ThreatIndicator, int64, error) {
	where := []string{"1 = 1"}
	args := []interface{}{}

	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.Value != "" {
		where = append(where, "value = ?")
		args = append(args, filter.Value)
	}
	if filter.Source != "" {
		where = append(where, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.ActiveOnly {
		where = append(where, "is_active = ?")
		args = append(args, true)
	}
	clause := strings.Join(where, " AND ")

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM threat_indicators WHERE %s", clause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.StoreUnavailable("Failed to count indicators", err)
	}

	query := fmt.Sprintf(`
		SELECT id, type, value, threat_type, severity, source, confidence, first_seen, last_seen, is_active
		FROM threat_indicators WHERE %s
		ORDER BY last_seen DESC LIMIT ? OFFSET ?
	`, clause)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.StoreUnavailable("Failed to list indicators", err)
	}
	defer rows.Close()

	indicators, err := scanIndicators(rows)
	if err != nil {
		return nil, 0, err
	}
	return indicators, total, nil
}

func (r *IndicatorRepository) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE threat_indicators SET is_active = ? WHERE id = ?", false, id)
	if err != nil {
		return errors.StoreUnavailable("Failed to deactivate indicator", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.StoreUnavailable("Failed to get affected rows", err)
	}
	if rows == 0 {
		return errors.NotFound("Indicator")
	}
	return nil
}

func scanIndicators(rows *sql.Rows) ([]*indicator.ThreatIndicator, error) {
	indicators := make([]*indicator.ThreatIndicator, 0)
	for rows.Next() {
		var ind indicator.ThreatIndicator
		var firstSeen, lastSeen string
		err := rows.Scan(
			&ind.ID, &ind.Type, &ind.Value, &ind.ThreatType, &ind.Severity,
			&ind.Source, &ind.Confidence, &firstSeen, &lastSeen, &ind.IsActive,
		)
		if err != nil {
			return nil, errors.StoreUnavailable("Failed to scan indicator", err)
		}
		ind.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
		ind.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)
		indicators = append(indicators, &ind)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StoreUnavailable("Failed to iterate indicators", err)
	}
	return indicators, nil
}
