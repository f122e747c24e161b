package rolls

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const characterID = 1

// Repository persists the dice roll log.
type Repository interface {
	Insert(ctx context.Context, rec *DiceRollRecord) error
	ListRecent(ctx context.Context, limit int) ([]DiceRollRecord, error)
}

type mysqlRepository struct {
	db *sql.DB
}

// NewRepository creates a MariaDB-backed roll log repository.
func NewRepository(db *sql.DB) Repository {
	return &mysqlRepository{db: db}
}

func (r *mysqlRepository) Insert(ctx context.Context, rec *DiceRollRecord) error {
	rolls, err := json.Marshal(rec.Rolls)
	if err != nil {
		return fmt.Errorf("encode rolls: %w", err)
	}
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO dice_rolls (character_id, formula, roll_type, details, rolls, modifier, total, is_critical, is_fumble, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		characterID, rec.Formula, rec.RollType, rec.Details, rolls,
		rec.Modifier, rec.Total, rec.IsCritical, rec.IsFumble, now)
	if err != nil {
		return fmt.Errorf("insert roll: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert roll: %w", err)
	}
	rec.ID = int(id)
	rec.CreatedAt = now
	return nil
}

func (r *mysqlRepository) ListRecent(ctx context.Context, limit int) ([]DiceRollRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, formula, roll_type, details, rolls, modifier, total, is_critical, is_fumble, created_at
		FROM dice_rolls
		WHERE character_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, characterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list rolls: %w", err)
	}
	defer rows.Close()

	records := []DiceRollRecord{}
	for rows.Next() {
		var (
			rec     DiceRollRecord
			details sql.NullString
			raw     []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Formula, &rec.RollType, &details, &raw,
			&rec.Modifier, &rec.Total, &rec.IsCritical, &rec.IsFumble, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Details = details.String
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &rec.Rolls); err != nil {
				return nil, fmt.Errorf("decode rolls: %w", err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
