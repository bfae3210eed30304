// Package annotations provides the append-only annotation store the
// hydrator writes into, keyed by (image reference, tool type), plus the
// lock/visibility flags mappers read per annotation UID.
package annotations

import (
	"fmt"

	memdb "github.com/hashicorp/go-memdb"

	"github.com/mrsinham/measurelink/internal/measure"
)

// Entry is one stored annotation.
type Entry struct {
	AnnotationUID  string
	ImageReference string
	ToolType       string
	Annotation     *measure.RawAnnotation
	Locked         bool
	Hidden         bool
}

// Store is a memdb-backed annotation store.
type Store struct {
	db *memdb.MemDB
}

const tableAnnotations = "annotations"

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableAnnotations: {
				Name: tableAnnotations,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "AnnotationUID"},
					},
					"ref": {
						Name:   "ref",
						Unique: false,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "ImageReference"},
								&memdb.StringFieldIndex{Field: "ToolType"},
							},
						},
					},
				},
			},
		},
	}
}

// NewStore builds an empty annotation store.
func NewStore() (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("create annotation store: %w", err)
	}
	return &Store{db: db}, nil
}

// Append associates an annotation with an image reference and tool type. The
// store is append-only from the hydrator's perspective; appending an existing
// UID replaces the entry.
func (s *Store) Append(imageReference, toolType string, ann *measure.RawAnnotation) error {
	if ann == nil || ann.AnnotationUID == "" {
		return fmt.Errorf("annotation without uid cannot be stored")
	}
	txn := s.db.Txn(true)
	defer txn.Abort()
	entry := &Entry{
		AnnotationUID:  ann.AnnotationUID,
		ImageReference: imageReference,
		ToolType:       toolType,
		Annotation:     ann,
	}
	if err := txn.Insert(tableAnnotations, entry); err != nil {
		return fmt.Errorf("store annotation %s: %w", ann.AnnotationUID, err)
	}
	txn.Commit()
	return nil
}

// Get returns an annotation by UID, or nil.
func (s *Store) Get(annotationUID string) *Entry {
	txn := s.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(tableAnnotations, "id", annotationUID)
	if err != nil || raw == nil {
		return nil
	}
	return raw.(*Entry)
}

// ForReference lists annotations stored under (image reference, tool type).
func (s *Store) ForReference(imageReference, toolType string) ([]*measure.RawAnnotation, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	it, err := txn.Get(tableAnnotations, "ref", imageReference, toolType)
	if err != nil {
		return nil, fmt.Errorf("lookup annotations for %s/%s: %w", imageReference, toolType, err)
	}
	var out []*measure.RawAnnotation
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*Entry).Annotation)
	}
	return out, nil
}

// All lists every stored entry in annotation UID order.
func (s *Store) All() []*Entry {
	txn := s.db.Txn(false)
	defer txn.Abort()
	it, err := txn.Get(tableAnnotations, "id")
	if err != nil {
		return nil
	}
	var out []*Entry
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, raw.(*Entry))
	}
	return out
}

// SetLocked updates the lock flag of a stored annotation. memdb records are
// immutable, so the entry is copied and reinserted.
func (s *Store) SetLocked(annotationUID string, locked bool) error {
	return s.updateFlags(annotationUID, func(e *Entry) { e.Locked = locked })
}

// SetHidden updates the visibility flag of a stored annotation.
func (s *Store) SetHidden(annotationUID string, hidden bool) error {
	return s.updateFlags(annotationUID, func(e *Entry) { e.Hidden = hidden })
}

func (s *Store) updateFlags(annotationUID string, apply func(*Entry)) error {
	txn := s.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First(tableAnnotations, "id", annotationUID)
	if err != nil {
		return fmt.Errorf("lookup annotation %s: %w", annotationUID, err)
	}
	if raw == nil {
		return fmt.Errorf("annotation %s not found", annotationUID)
	}
	updated := *raw.(*Entry)
	apply(&updated)
	if err := txn.Insert(tableAnnotations, &updated); err != nil {
		return fmt.Errorf("update annotation %s: %w", annotationUID, err)
	}
	txn.Commit()
	return nil
}

// IsLocked reports the lock flag for an annotation UID. Unknown annotations
// are unlocked.
func (s *Store) IsLocked(annotationUID string) bool {
	e := s.Get(annotationUID)
	return e != nil && e.Locked
}

// IsVisible reports the visibility flag for an annotation UID. Unknown
// annotations are visible.
func (s *Store) IsVisible(annotationUID string) bool {
	e := s.Get(annotationUID)
	return e == nil || !e.Hidden
}
