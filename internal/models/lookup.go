package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/spotx/internal/shared"
)

// Lookup kinds mirror the resource kind names used by the resolver.
var lookupKinds = map[string]bool{
	"query":    true,
	"track":    true,
	"album":    true,
	"playlist": true,
	"artist":   true,
}

// Lookup records one resolved input: what was asked, what it classified as and the
// display name found in the response. Response bodies are not kept.
type Lookup struct {
	id         string
	sequence   int
	input      string
	kind       string
	resourceID string
	name       string
	createdAt  time.Time
	updatedAt  time.Time
	deletedAt  *time.Time
}

// NewLookup creates a Lookup stamped with the current time. The ID is assigned on insert.
func NewLookup(input, kind, resourceID, name string) *Lookup {
	now := time.Now()
	return &Lookup{
		input:      input,
		kind:       kind,
		resourceID: resourceID,
		name:       name,
		createdAt:  now,
		updatedAt:  now,
	}
}

// RestoreLookup rebuilds a Lookup from stored columns.
func RestoreLookup(id string, sequence int, input, kind, resourceID, name string, createdAt, updatedAt time.Time, deletedAt *time.Time) *Lookup {
	return &Lookup{
		id:         id,
		sequence:   sequence,
		input:      input,
		kind:       kind,
		resourceID: resourceID,
		name:       name,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
		deletedAt:  deletedAt,
	}
}

func (l *Lookup) ID() string { return l.id }
func (l *Lookup) Sequence() int { return l.sequence }
func (l *Lookup) Input() string { return l.input }
func (l *Lookup) Kind() string { return l.kind }
func (l *Lookup) ResourceID() string { return l.resourceID }
func (l *Lookup) Name() string { return l.name }
func (l *Lookup) CreatedAt() time.Time { return l.createdAt }
func (l *Lookup) UpdatedAt() time.Time { return l.updatedAt }
func (l *Lookup) DeletedAt() *time.Time { return l.deletedAt }

func (l *Lookup) SetID(id string) { l.id = id }
func (l *Lookup) SetSequence(sequence int) { l.sequence = sequence }
func (l *Lookup) SetName(name string) { l.name = name }
func (l *Lookup) SetUpdatedAt(t time.Time) { l.updatedAt = t }
func (l *Lookup) SetDeletedAt(t *time.Time) { l.deletedAt = t }

// IsDeleted reports whether the lookup has been soft-deleted.
func (l *Lookup) IsDeleted() bool {
	return l.deletedAt != nil
}

// Validate checks required fields. Catalog kinds need a resource id; queries must not have one.
func (l *Lookup) Validate() error {
	if strings.TrimSpace(l.input) == "" {
		return fmt.Errorf("%w: lookup input is required", shared.ErrInvalidInput)
	}
	if !lookupKinds[l.kind] {
		return fmt.Errorf("%w: unknown lookup kind %q", shared.ErrInvalidInput, l.kind)
	}
	if l.kind == "query" && l.resourceID != "" {
		return fmt.Errorf("%w: query lookups have no resource id", shared.ErrInvalidInput)
	}
	if l.kind != "query" && l.resourceID == "" {
		return fmt.Errorf("%w: %s lookup requires a resource id", shared.ErrInvalidInput, l.kind)
	}
	return nil
}
