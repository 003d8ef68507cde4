package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/shared"
)

const lookupColumns = `id, sequence, input, kind, resource_id, name, created_at, updated_at, deleted_at`

// LookupRepository implements models.Repository[*models.Lookup] for lookup history.
//
// Deleted lookups are soft-deleted and excluded from every query.
type LookupRepository struct {
	db *sql.DB
}

// NewLookupRepository creates a new LookupRepository with the given database connection
func NewLookupRepository(db *sql.DB) *LookupRepository {
	return &LookupRepository{db: db}
}

// Create inserts a new [models.Lookup] with a generated ID and sequence
func (r *LookupRepository) Create(lookup *models.Lookup) error {
	if err := lookup.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "lookups")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO lookups (id, sequence, input, kind, resource_id, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		lookup.Input(),
		lookup.Kind(),
		lookup.ResourceID(),
		lookup.Name(),
		lookup.CreatedAt(),
		lookup.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert lookup: %w", err)
	}

	lookup.SetID(id)
	lookup.SetSequence(sequence)
	return nil
}

// Get retrieves a lookup by ID, excluding soft-deleted lookups
func (r *LookupRepository) Get(id string) (*models.Lookup, error) {
	query := `SELECT ` + lookupColumns + ` FROM lookups WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// GetBySequence retrieves a lookup by its sequence number, as shown by the history command
func (r *LookupRepository) GetBySequence(sequence int) (*models.Lookup, error) {
	query := `SELECT ` + lookupColumns + ` FROM lookups WHERE sequence = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, sequence))
}

// Update stores a changed display name
func (r *LookupRepository) Update(lookup *models.Lookup) error {
	if err := lookup.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()

	result, err := r.db.Exec(
		`UPDATE lookups SET name = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		lookup.Name(), now, lookup.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update lookup: %w", err)
	}

	if err := expectOne(result, lookup.ID()); err != nil {
		return err
	}

	lookup.SetUpdatedAt(now)
	return nil
}

// Delete soft-deletes a lookup by ID
func (r *LookupRepository) Delete(id string) error {
	result, err := r.db.Exec(
		`UPDATE lookups SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete lookup: %w", err)
	}

	return expectOne(result, id)
}

// Clear soft-deletes every lookup and returns how many were removed
func (r *LookupRepository) Clear() (int64, error) {
	result, err := r.db.Exec(`UPDATE lookups SET deleted_at = ? WHERE deleted_at IS NULL`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to clear lookups: %w", err)
	}
	return result.RowsAffected()
}

// List retrieves lookups matching criteria, newest first.
//
// Supported criteria: "kind" (string), "resource_id" (string), "limit" (int).
func (r *LookupRepository) List(criteria map[string]any) ([]*models.Lookup, error) {
	query := `SELECT ` + lookupColumns + ` FROM lookups WHERE deleted_at IS NULL`
	args := []any{}

	if kind, ok := criteria["kind"].(string); ok && kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}

	if resourceID, ok := criteria["resource_id"].(string); ok && resourceID != "" {
		query += " AND resource_id = ?"
		args = append(args, resourceID)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lookups: %w", err)
	}
	defer rows.Close()

	var lookups []*models.Lookup
	for rows.Next() {
		lookup, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		lookups = append(lookups, lookup)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return lookups, nil
}

// CountByKind returns the number of live lookups per kind
func (r *LookupRepository) CountByKind() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT kind, COUNT(*) FROM lookups WHERE deleted_at IS NULL GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to count lookups: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[kind] = count
	}

	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

// scan reads one row of lookupColumns from a [sql.Row] or [sql.Rows]
func (r *LookupRepository) scan(s scanner) (*models.Lookup, error) {
	var (
		id         string
		sequence   int
		input      string
		kind       string
		resourceID string
		name       string
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := s.Scan(&id, &sequence, &input, &kind, &resourceID, &name, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrLookupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan lookup: %w", err)
	}

	var deleted *time.Time
	if deletedAt.Valid {
		deleted = &deletedAt.Time
	}

	return models.RestoreLookup(id, sequence, input, kind, resourceID, name, createdAt, updatedAt, deleted), nil
}

func expectOne(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrLookupNotFound, id)
	}
	return nil
}
