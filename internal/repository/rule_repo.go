package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"grillstream/internal/models"

	"github.com/google/uuid"
)

type RuleSQLite struct {
	db *sql.DB
}

func NewRuleSQLite(db *sql.DB) *RuleSQLite { return &RuleSQLite{db: db} }

var _ RuleRepo = (*RuleSQLite)(nil)

const (
	insertRuleSQL = `
		INSERT INTO alert_rules (id, device_id, channel_id, kind, threshold, debounce_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	selectRulesSQL = `
		SELECT id, device_id, channel_id, kind, threshold, debounce_ms, created_at
		FROM alert_rules ORDER BY created_at ASC
	`

	selectRulesForDeviceSQL = `
		SELECT id, device_id, channel_id, kind, threshold, debounce_ms, created_at
		FROM alert_rules WHERE device_id = ? ORDER BY created_at ASC
	`

	deleteRuleSQL = `DELETE FROM alert_rules WHERE id = ?`
)

// Create validates and inserts a rule. Malformed rules never reach the
// evaluator; they are rejected here.
func (r *RuleSQLite) Create(ctx context.Context, rule models.AlertRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	if err := rule.Validate(); err != nil {
		return err
	}

	var channel any
	if rule.ChannelID != "" {
		channel = rule.ChannelID
	}
	_, err := r.db.ExecContext(ctx, insertRuleSQL,
		rule.ID, rule.DeviceID, channel, rule.Kind,
		rule.ThresholdF, rule.Debounce.Milliseconds(), rule.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert alert rule %q: %w", rule.ID, err)
	}
	return nil
}

// Delete removes a rule by id.
func (r *RuleSQLite) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, deleteRuleSQL, id); err != nil {
		return fmt.Errorf("delete alert rule %q: %w", id, err)
	}
	return nil
}

// List returns all rules ordered by creation time.
func (r *RuleSQLite) List(ctx context.Context) ([]models.AlertRule, error) {
	return r.query(ctx, selectRulesSQL)
}

// ListForDevice returns rules scoped to one device.
func (r *RuleSQLite) ListForDevice(ctx context.Context, deviceID string) ([]models.AlertRule, error) {
	return r.query(ctx, selectRulesForDeviceSQL, deviceID)
}

func (r *RuleSQLite) query(ctx context.Context, q string, args ...any) ([]models.AlertRule, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select alert rules: %w", err)
	}
	defer rows.Close()

	out := make([]models.AlertRule, 0, 16)
	for rows.Next() {
		var rule models.AlertRule
		var channel sql.NullString
		var debounceMs int64
		if err := rows.Scan(
			&rule.ID, &rule.DeviceID, &channel, &rule.Kind,
			&rule.ThresholdF, &debounceMs, &rule.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan alert rule: %w", err)
		}
		rule.ChannelID = channel.String
		rule.Debounce = time.Duration(debounceMs) * time.Millisecond
		rule.CreatedAt = rule.CreatedAt.UTC()
		out = append(out, rule)
	}
	return out, rows.Err()
}
