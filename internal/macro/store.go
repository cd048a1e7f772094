package macro

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/earnest-s/slate-core/internal/infrastructure/database"
)

// Store persists macro sequences in SQLite. Events are serialized as a
// JSON column; sequences are small enough that relational modelling of
// individual events buys nothing.
type Store struct {
	db *database.DB
}

// NewStore creates a store over the given database.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// Save inserts or updates a sequence.
func (s *Store) Save(ctx context.Context, seq Sequence) error {
	events, err := json.Marshal(seq.Events)
	if err != nil {
		return fmt.Errorf("marshalling events: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO macro_sequences (id, name, events_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			events_json = excluded.events_json,
			updated_at = excluded.updated_at
	`,
		seq.ID,
		seq.Name,
		string(events),
		seq.CreatedAt.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving sequence %s: %w", seq.ID, err)
	}
	return nil
}

// Get returns the sequence with the given ID.
func (s *Store) Get(ctx context.Context, id string) (Sequence, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, events_json, created_at, updated_at
		FROM macro_sequences
		WHERE id = ?
	`, id)

	seq, err := scanSequence(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Sequence{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Sequence{}, fmt.Errorf("getting sequence %s: %w", id, err)
	}
	return seq, nil
}

// List returns all stored sequences ordered by name.
func (s *Store) List(ctx context.Context) ([]Sequence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, events_json, created_at, updated_at
		FROM macro_sequences
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("listing sequences: %w", err)
	}
	defer rows.Close()

	var sequences []Sequence
	for rows.Next() {
		seq, err := scanSequence(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sequence: %w", err)
		}
		sequences = append(sequences, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sequences: %w", err)
	}
	return sequences, nil
}

// Delete removes a sequence.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM macro_sequences WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting sequence %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting sequence %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanSequence.
type scanner interface {
	Scan(dest ...any) error
}

// scanSequence reads one sequence row.
func scanSequence(row scanner) (Sequence, error) {
	var (
		seq       Sequence
		events    string
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&seq.ID, &seq.Name, &events, &createdAt, &updatedAt); err != nil {
		return Sequence{}, err
	}

	if err := json.Unmarshal([]byte(events), &seq.Events); err != nil {
		return Sequence{}, fmt.Errorf("unmarshalling events: %w", err)
	}

	seq.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // Format is controlled
	seq.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Format is controlled
	return seq, nil
}
