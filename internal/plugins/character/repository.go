package character

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmowen/warsheet/internal/apperror"
)

// characterID is the fixed row the single tracked character lives at.
const characterID = 1

// Repository loads and stores the character aggregate.
type Repository interface {
	// Load reads the full aggregate: identity, sheet document and combat
	// state columns.
	Load(ctx context.Context) (*Character, error)
	// SaveSheet persists the whole sheet document. The caller is
	// expected to have loaded, mutated and now writes back the document
	// as one unit.
	SaveSheet(ctx context.Context, sheet *Sheet) error
	// Seed inserts the default character if the row does not exist yet.
	// Returns true when a row was created.
	Seed(ctx context.Context, seed *Character) (bool, error)
}

type mysqlRepository struct {
	db *sql.DB
}

// NewRepository creates a MariaDB-backed character repository.
func NewRepository(db *sql.DB) Repository {
	return &mysqlRepository{db: db}
}

// ErrNotFound is the underlying cause when the character row has not been
// seeded. Load wraps it in an AppError so the handler maps it to a 404.
var ErrNotFound = errors.New("character not found")

func (r *mysqlRepository) Load(ctx context.Context) (*Character, error) {
	query := `
		SELECT id, name, level, class, subclass, race, subrace, background, data,
		       death_save_successes, death_save_failures, is_stable,
		       concentration_spell, concentration_duration, concentration_rounds_left, concentration_dc,
		       initiative, in_combat, current_round, reaction_used, updated_at
		FROM characters
		WHERE id = ?`

	var (
		ch       Character
		raw      []byte
		subclass sql.NullString
		race     sql.NullString
		subrace  sql.NullString
		bg       sql.NullString
		ccSpell  sql.NullString
		ccDur    sql.NullInt64
		ccLeft   sql.NullInt64
	)

	err := r.db.QueryRowContext(ctx, query, characterID).Scan(
		&ch.ID, &ch.Name, &ch.Level, &ch.Class, &subclass, &race, &subrace, &bg, &raw,
		&ch.DeathSaveSuccesses, &ch.DeathSaveFailures, &ch.IsStable,
		&ccSpell, &ccDur, &ccLeft, &ch.ConcentrationDC,
		&ch.Initiative, &ch.InCombat, &ch.CurrentRound, &ch.ReactionUsed, &ch.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		notFound := apperror.NewNotFound("character not found")
		notFound.Internal = ErrNotFound
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("load character: %w", err)
	}

	ch.Subclass = subclass.String
	ch.Race = race.String
	ch.Subrace = subrace.String
	ch.Background = bg.String
	if ccSpell.Valid {
		ch.ConcentrationSpell = &ccSpell.String
	}
	if ccDur.Valid {
		v := int(ccDur.Int64)
		ch.ConcentrationDuration = &v
	}
	if ccLeft.Valid {
		v := int(ccLeft.Int64)
		ch.ConcentrationRoundsLeft = &v
	}

	if err := json.Unmarshal(raw, &ch.Sheet); err != nil {
		return nil, fmt.Errorf("decode character sheet: %w", err)
	}
	return &ch, nil
}

func (r *mysqlRepository) SaveSheet(ctx context.Context, sheet *Sheet) error {
	raw, err := json.Marshal(sheet)
	if err != nil {
		return fmt.Errorf("encode character sheet: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE characters SET data = ? WHERE id = ?`, raw, characterID)
	if err != nil {
		return fmt.Errorf("save character sheet: %w", err)
	}
	return nil
}

func (r *mysqlRepository) Seed(ctx context.Context, seed *Character) (bool, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM characters WHERE id = ?`, characterID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check character: %w", err)
	}
	if exists > 0 {
		return false, nil
	}

	raw, err := json.Marshal(&seed.Sheet)
	if err != nil {
		return false, fmt.Errorf("encode seed sheet: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO characters (id, name, level, class, subclass, race, subrace, background, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		characterID, seed.Name, seed.Level, seed.Class, seed.Subclass,
		seed.Race, seed.Subrace, seed.Background, raw)
	if err != nil {
		return false, fmt.Errorf("seed character: %w", err)
	}
	return true, nil
}
