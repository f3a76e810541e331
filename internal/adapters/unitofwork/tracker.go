// Package unitofwork holds the session bookkeeping shared by the storage
// backends: an identity map of loaded entities, staged inserts and deletes,
// and dirty detection at commit time.
package unitofwork

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/zatekoja/hbnb/internal/domain/entities"
	apperrors "github.com/zatekoja/hbnb/pkg/errors"
)

// Changes is the work a backend must apply atomically
type Changes struct {
	Inserts []entities.Entity
	Updates []entities.Entity
	Deletes []entities.Entity
	// Links holds, by key, the amenity link changes of updated places
	Links map[string]LinkDelta
}

// LinkDelta is how the amenity links of a place moved within a session
type LinkDelta struct {
	Added   []string
	Removed []string
}

// Merge applies the delta to the links currently stored, keeping their order
func (d LinkDelta) Merge(current []string) []string {
	merged := make([]string, 0, len(current)+len(d.Added))
	for _, id := range current {
		if !slices.Contains(d.Removed, id) {
			merged = append(merged, id)
		}
	}
	for _, id := range d.Added {
		if !slices.Contains(merged, id) {
			merged = append(merged, id)
		}
	}
	return merged
}

// Empty reports whether there is nothing to apply
func (c Changes) Empty() bool {
	return len(c.Inserts) == 0 && len(c.Updates) == 0 && len(c.Deletes) == 0
}

type entry struct {
	entity    entities.Entity
	snapshot  []byte
	id        string
	createdAt time.Time
	links     []string
}

// Tracker records what a session has loaded and staged. It is not safe for
// concurrent use.
type Tracker struct {
	tracked map[string]*entry
	pending map[string]entities.Entity
	order   []string
	deleted map[string]entities.Entity
}

// NewTracker returns an empty tracker
func NewTracker() *Tracker {
	t := &Tracker{}
	t.Reset()
	return t
}

// Reset drops everything loaded and staged
func (t *Tracker) Reset() {
	t.tracked = make(map[string]*entry)
	t.pending = make(map[string]entities.Entity)
	t.order = nil
	t.deleted = make(map[string]entities.Entity)
}

// Track registers a freshly loaded entity. When the key is already tracked
// the tracked instance is returned instead, so a session hands out one
// instance per stored record.
func (t *Tracker) Track(loaded entities.Entity) entities.Entity {
	key := entities.Key(loaded)
	if e, ok := t.tracked[key]; ok {
		return e.entity
	}
	t.tracked[key] = newEntry(loaded)
	return loaded
}

// Forget stops tracking key
func (t *Tracker) Forget(key string) {
	delete(t.tracked, key)
}

// Stage queues e for insertion
func (t *Tracker) Stage(e entities.Entity) {
	if e == nil {
		return
	}
	key := entities.Key(e)
	delete(t.deleted, key)
	if tr, ok := t.tracked[key]; ok && tr.entity == e {
		return
	}
	if _, ok := t.pending[key]; !ok {
		t.order = append(t.order, key)
	}
	t.pending[key] = e
}

// Remove queues e for deletion. Removing a staged insert cancels it.
func (t *Tracker) Remove(e entities.Entity) {
	if e == nil {
		return
	}
	key := entities.Key(e)
	if _, ok := t.pending[key]; ok {
		delete(t.pending, key)
		t.order = slices.DeleteFunc(t.order, func(k string) bool { return k == key })
		return
	}
	t.deleted[key] = e
}

// Pending reports whether anything is staged
func (t *Tracker) Pending() bool {
	return len(t.pending) > 0 || len(t.deleted) > 0
}

// Commit collects the staged and modified entities, validates them, stamps
// modified ones with now and hands them to apply. When apply fails the
// tracker is reset and the error returned; on success the tracked state is
// settled to what was written.
func (t *Tracker) Commit(now time.Time, apply func(Changes) error) error {
	changes, err := t.collect(now)
	if err != nil {
		t.Reset()
		return err
	}

	if err := apply(changes); err != nil {
		t.Reset()
		return err
	}

	for _, e := range changes.Deletes {
		delete(t.tracked, entities.Key(e))
	}
	for _, e := range changes.Inserts {
		t.tracked[entities.Key(e)] = newEntry(e)
	}
	for _, e := range changes.Updates {
		t.tracked[entities.Key(e)] = newEntry(e)
	}
	t.pending = make(map[string]entities.Entity)
	t.order = nil
	t.deleted = make(map[string]entities.Entity)
	return nil
}

func (t *Tracker) collect(now time.Time) (Changes, error) {
	var changes Changes

	for _, key := range t.order {
		e := t.pending[key]
		if err := e.Validate(); err != nil {
			return Changes{}, err
		}
		changes.Inserts = append(changes.Inserts, e)
	}

	for _, e := range t.deleted {
		changes.Deletes = append(changes.Deletes, e)
	}

	for key, tr := range t.tracked {
		if _, gone := t.deleted[key]; gone {
			continue
		}
		dirty, err := tr.dirty()
		if err != nil {
			return Changes{}, err
		}
		if !dirty {
			continue
		}
		base := tr.entity.GetBase()
		if base.ID != tr.id {
			return Changes{}, apperrors.NewValidationError("Invalid id")
		}
		if !base.CreatedAt.Equal(tr.createdAt) {
			return Changes{}, apperrors.NewValidationError("Invalid created_at")
		}
		if err := tr.entity.Validate(); err != nil {
			return Changes{}, err
		}
		base.Touch(now)
		changes.Updates = append(changes.Updates, tr.entity)

		if delta, moved := tr.linkDelta(); moved {
			if changes.Links == nil {
				changes.Links = make(map[string]LinkDelta)
			}
			changes.Links[key] = delta
		}
	}

	slices.SortStableFunc(changes.Inserts, byKind)
	slices.SortFunc(changes.Updates, byKind)
	slices.SortFunc(changes.Deletes, func(a, b entities.Entity) int { return byKind(b, a) })
	return changes, nil
}

func byKind(a, b entities.Entity) int {
	if c := cmp.Compare(a.Kind(), b.Kind()); c != 0 {
		return c
	}
	return cmp.Compare(a.GetBase().ID, b.GetBase().ID)
}

func newEntry(e entities.Entity) *entry {
	snapshot, _ := entities.Encode(e)
	base := e.GetBase()
	tr := &entry{entity: e, snapshot: snapshot, id: base.ID, createdAt: base.CreatedAt}
	if p, ok := e.(*entities.Place); ok {
		tr.links = slices.Clone(p.AmenityIDs)
	}
	return tr
}

func (tr *entry) linkDelta() (LinkDelta, bool) {
	p, ok := tr.entity.(*entities.Place)
	if !ok {
		return LinkDelta{}, false
	}
	var d LinkDelta
	for _, id := range p.AmenityIDs {
		if !slices.Contains(tr.links, id) {
			d.Added = append(d.Added, id)
		}
	}
	for _, id := range tr.links {
		if !slices.Contains(p.AmenityIDs, id) {
			d.Removed = append(d.Removed, id)
		}
	}
	return d, len(d.Added) > 0 || len(d.Removed) > 0
}

func (tr *entry) dirty() (bool, error) {
	current, err := entities.Encode(tr.entity)
	if err != nil {
		return false, fmt.Errorf("failed to snapshot %s: %w", tr.entity.Kind(), err)
	}
	return !bytes.Equal(current, tr.snapshot), nil
}
