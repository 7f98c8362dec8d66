package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/RyanBlaney/melodraw/logging"
	"github.com/RyanBlaney/melodraw/melody"
)

// MinTitleLength is the shortest accepted title, in characters.
const MinTitleLength = 4

// Library saves and loads melody records by title and ID.
type Library struct {
	kv     KV
	newID  func() string
	logger logging.Logger
}

// NewLibrary creates a library over kv.
func NewLibrary(kv KV, logger logging.Logger) *Library {
	return &Library{
		kv:    kv,
		newID: uuid.NewString,
		logger: logging.OrGlobal(logger).WithFields(logging.Fields{
			"component": "library",
		}),
	}
}

// Save stores rec under a fresh ID and returns it with the ID set. A title
// already in use is ErrTitleExists unless overwrite is set, in which case
// the old record is deleted first.
func (l *Library) Save(ctx context.Context, rec melody.Record, overwrite bool) (melody.Record, error) {
	logger := l.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Save",
		"title":    rec.Title,
	})

	if utf8.RuneCountInString(rec.Title) < MinTitleLength {
		return melody.Record{}, ErrTitleTooShort
	}

	existing, err := l.find(ctx, rec.Title)
	switch {
	case err == nil && !overwrite:
		return melody.Record{}, fmt.Errorf("%w: %q", ErrTitleExists, rec.Title)
	case err == nil:
		if err := l.kv.Delete(ctx, existing.ID); err != nil {
			return melody.Record{}, fmt.Errorf("failed to delete %s: %w", existing.ID, err)
		}
		logger.Info("Overwriting record", logging.Fields{"old_id": existing.ID})
	case !errors.Is(err, ErrNotFound):
		return melody.Record{}, err
	}

	rec.ID = l.newID()
	rec.Notes = rec.Notes.Clone()
	data, err := json.Marshal(rec)
	if err != nil {
		return melody.Record{}, fmt.Errorf("failed to encode record: %w", err)
	}
	if err := l.kv.Put(ctx, rec.ID, data); err != nil {
		return melody.Record{}, fmt.Errorf("failed to store record: %w", err)
	}

	logger.Info("Record saved", logging.Fields{"id": rec.ID, "notes": len(rec.Notes)})
	return rec, nil
}

// Load returns the record stored under id.
func (l *Library) Load(ctx context.Context, id string) (melody.Record, error) {
	data, err := l.kv.Get(ctx, id)
	if err != nil {
		return melody.Record{}, fmt.Errorf("record %s: %w", id, err)
	}

	var rec melody.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return melody.Record{}, fmt.Errorf("record %s: failed to decode: %w", id, err)
	}
	return rec, nil
}

// List returns every record in the order they were saved.
func (l *Library) List(ctx context.Context) ([]melody.Record, error) {
	keys, err := l.kv.Keys(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]melody.Record, 0, len(keys))
	for _, k := range keys {
		rec, err := l.Load(ctx, k)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Delete removes the record stored under id.
func (l *Library) Delete(ctx context.Context, id string) error {
	if err := l.kv.Delete(ctx, id); err != nil {
		return fmt.Errorf("record %s: %w", id, err)
	}
	return nil
}

func (l *Library) find(ctx context.Context, title string) (melody.Record, error) {
	records, err := l.List(ctx)
	if err != nil {
		return melody.Record{}, err
	}
	for _, rec := range records {
		if rec.Title == title {
			return rec, nil
		}
	}
	return melody.Record{}, ErrNotFound
}
