package combat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const characterID = 1

// Repository persists combat state: the conditions table and the flat
// combat columns on the character row.
type Repository interface {
	ActiveConditions(ctx context.Context) ([]Condition, error)
	FindActiveCondition(ctx context.Context, name string) (*Condition, error)
	InsertCondition(ctx context.Context, name string, rounds *int) (*Condition, error)
	// RefreshCondition resets an active condition's countdown.
	RefreshCondition(ctx context.Context, id int, rounds *int) error
	DeactivateCondition(ctx context.Context, id int) error
	DeactivateAllConditions(ctx context.Context) ([]string, error)
	// TickConditions decrements every timed active condition by one
	// round inside a transaction and returns the names that expired.
	TickConditions(ctx context.Context) ([]string, error)

	DeathSaves(ctx context.Context) (DeathSaveState, error)
	SaveDeathSaves(ctx context.Context, s DeathSaveState) error

	Concentration(ctx context.Context) (ConcentrationState, error)
	SaveConcentration(ctx context.Context, s ConcentrationState) error

	Tracker(ctx context.Context) (TrackerState, error)
	SaveTracker(ctx context.Context, s TrackerState) error
}

type mysqlRepository struct {
	db *sql.DB
}

// NewRepository creates a MariaDB-backed combat repository.
func NewRepository(db *sql.DB) Repository {
	return &mysqlRepository{db: db}
}

func (r *mysqlRepository) ActiveConditions(ctx context.Context) ([]Condition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, duration_type, duration_value, rounds_left, active, applied_at, removed_at
		FROM conditions
		WHERE character_id = ? AND active = 1
		ORDER BY applied_at, id`, characterID)
	if err != nil {
		return nil, fmt.Errorf("list conditions: %w", err)
	}
	defer rows.Close()

	conditions := []Condition{}
	for rows.Next() {
		c, err := scanCondition(rows)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, *c)
	}
	return conditions, rows.Err()
}

func (r *mysqlRepository) FindActiveCondition(ctx context.Context, name string) (*Condition, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, duration_type, duration_value, rounds_left, active, applied_at, removed_at
		FROM conditions
		WHERE character_id = ? AND active = 1 AND name = ?
		LIMIT 1`, characterID, name)
	c, err := scanCondition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *mysqlRepository) InsertCondition(ctx context.Context, name string, rounds *int) (*Condition, error) {
	durationType := DurationPermanent
	if rounds != nil {
		durationType = DurationRounds
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO conditions (character_id, name, duration_type, duration_value, rounds_left, active, applied_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)`, characterID, name, durationType, rounds, rounds, now)
	if err != nil {
		return nil, fmt.Errorf("insert condition: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert condition: %w", err)
	}
	return &Condition{
		ID:            int(id),
		Name:          name,
		DurationType:  durationType,
		DurationValue: rounds,
		RoundsLeft:    rounds,
		Active:        true,
		AppliedAt:     now,
	}, nil
}

func (r *mysqlRepository) RefreshCondition(ctx context.Context, id int, rounds *int) error {
	durationType := DurationPermanent
	if rounds != nil {
		durationType = DurationRounds
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE conditions SET duration_type = ?, duration_value = ?, rounds_left = ?, applied_at = ?
		WHERE id = ? AND character_id = ?`,
		durationType, rounds, rounds, time.Now().UTC(), id, characterID)
	if err != nil {
		return fmt.Errorf("refresh condition: %w", err)
	}
	return nil
}

func (r *mysqlRepository) DeactivateCondition(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE conditions SET active = 0, removed_at = ?
		WHERE id = ? AND character_id = ?`, time.Now().UTC(), id, characterID)
	if err != nil {
		return fmt.Errorf("deactivate condition: %w", err)
	}
	return nil
}

func (r *mysqlRepository) DeactivateAllConditions(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name FROM conditions
		WHERE character_id = ? AND active = 1`, characterID)
	if err != nil {
		return nil, fmt.Errorf("clear conditions: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE conditions SET active = 0, removed_at = ?
		WHERE character_id = ? AND active = 1`, time.Now().UTC(), characterID)
	if err != nil {
		return nil, fmt.Errorf("clear conditions: %w", err)
	}
	return names, nil
}

func (r *mysqlRepository) TickConditions(ctx context.Context) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("tick conditions: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, rounds_left FROM conditions
		WHERE character_id = ? AND active = 1 AND rounds_left IS NOT NULL
		FOR UPDATE`, characterID)
	if err != nil {
		return nil, fmt.Errorf("tick conditions: %w", err)
	}

	var (
		expiredIDs []any
		expired    []string
	)
	for rows.Next() {
		var (
			id, left int
			name     string
		)
		if err := rows.Scan(&id, &name, &left); err != nil {
			rows.Close()
			return nil, err
		}
		if left <= 1 {
			expiredIDs = append(expiredIDs, id)
			expired = append(expired, name)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	_, err = tx.ExecContext(ctx, `
		UPDATE conditions SET rounds_left = rounds_left - 1
		WHERE character_id = ? AND active = 1 AND rounds_left IS NOT NULL`, characterID)
	if err != nil {
		return nil, fmt.Errorf("tick conditions: %w", err)
	}

	if len(expiredIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(expiredIDs)), ",")
		args := append([]any{time.Now().UTC()}, expiredIDs...)
		_, err = tx.ExecContext(ctx,
			`UPDATE conditions SET active = 0, removed_at = ? WHERE id IN (`+placeholders+`)`,
			args...)
		if err != nil {
			return nil, fmt.Errorf("expire conditions: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("tick conditions: %w", err)
	}
	return expired, nil
}

func (r *mysqlRepository) DeathSaves(ctx context.Context) (DeathSaveState, error) {
	var s DeathSaveState
	err := r.db.QueryRowContext(ctx, `
		SELECT death_save_successes, death_save_failures, is_stable
		FROM characters WHERE id = ?`, characterID).
		Scan(&s.Successes, &s.Failures, &s.IsStable)
	if err != nil {
		return s, fmt.Errorf("load death saves: %w", err)
	}
	return s, nil
}

func (r *mysqlRepository) SaveDeathSaves(ctx context.Context, s DeathSaveState) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE characters
		SET death_save_successes = ?, death_save_failures = ?, is_stable = ?
		WHERE id = ?`, s.Successes, s.Failures, s.IsStable, characterID)
	if err != nil {
		return fmt.Errorf("save death saves: %w", err)
	}
	return nil
}

func (r *mysqlRepository) Concentration(ctx context.Context) (ConcentrationState, error) {
	var (
		s     ConcentrationState
		spell sql.NullString
		dur   sql.NullInt64
		left  sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT concentration_spell, concentration_duration, concentration_rounds_left, concentration_dc
		FROM characters WHERE id = ?`, characterID).
		Scan(&spell, &dur, &left, &s.SaveDC)
	if err != nil {
		return s, fmt.Errorf("load concentration: %w", err)
	}
	if spell.Valid {
		s.Spell = &spell.String
	}
	if dur.Valid {
		v := int(dur.Int64)
		s.Duration = &v
	}
	if left.Valid {
		v := int(left.Int64)
		s.RoundsLeft = &v
	}
	return s, nil
}

func (r *mysqlRepository) SaveConcentration(ctx context.Context, s ConcentrationState) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE characters
		SET concentration_spell = ?, concentration_duration = ?,
		    concentration_rounds_left = ?, concentration_dc = ?
		WHERE id = ?`, s.Spell, s.Duration, s.RoundsLeft, s.SaveDC, characterID)
	if err != nil {
		return fmt.Errorf("save concentration: %w", err)
	}
	return nil
}

func (r *mysqlRepository) Tracker(ctx context.Context) (TrackerState, error) {
	var s TrackerState
	err := r.db.QueryRowContext(ctx, `
		SELECT in_combat, initiative, current_round, reaction_used
		FROM characters WHERE id = ?`, characterID).
		Scan(&s.InCombat, &s.Initiative, &s.CurrentRound, &s.ReactionUsed)
	if err != nil {
		return s, fmt.Errorf("load tracker: %w", err)
	}
	return s, nil
}

func (r *mysqlRepository) SaveTracker(ctx context.Context, s TrackerState) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE characters
		SET in_combat = ?, initiative = ?, current_round = ?, reaction_used = ?
		WHERE id = ?`, s.InCombat, s.Initiative, s.CurrentRound, s.ReactionUsed, characterID)
	if err != nil {
		return fmt.Errorf("save tracker: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCondition(row rowScanner) (*Condition, error) {
	var (
		c        Condition
		duration sql.NullInt64
		rounds   sql.NullInt64
		removed  sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.Name, &c.DurationType, &duration, &rounds, &c.Active, &c.AppliedAt, &removed); err != nil {
		return nil, err
	}
	if duration.Valid {
		v := int(duration.Int64)
		c.DurationValue = &v
	}
	if rounds.Valid {
		v := int(rounds.Int64)
		c.RoundsLeft = &v
	}
	if removed.Valid {
		c.RemovedAt = &removed.Time
	}
	return &c, nil
}
