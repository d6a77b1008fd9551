// Package postgresql is the authoritative record store the worker reads
// dictionary entries from. The search index is derived state; this database
// is the source of truth.
package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rufai/igbodictionary-website/internal/dictionary"
)

// DB is the slice of pgxpool.Pool the store needs. pgxmock satisfies it.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type EntryStore struct {
	db DB
}

func NewEntryStore(db DB) *EntryStore {
	return &EntryStore{db: db}
}

const entryColumns = `word, part_of_speech, definitions, examples, variants,
	pronunciation, contributor, attributes, updated_at`

const getEntryByWordSQL = `SELECT ` + entryColumns + `
	FROM word_entries WHERE lower(word) = lower($1)`

const listEntriesSQL = `SELECT ` + entryColumns + `
	FROM word_entries ORDER BY word`

// GetEntryByWord fetches one entry by its natural key, case-insensitively.
// Returns dictionary.ErrEntryNotFound when no row matches.
func (s *EntryStore) GetEntryByWord(ctx context.Context, word string) (dictionary.Entry, error) {
	row := s.db.QueryRow(ctx, getEntryByWordSQL, word)

	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dictionary.Entry{}, fmt.Errorf("%w: %q", dictionary.ErrEntryNotFound, word)
		}
		return dictionary.Entry{}, fmt.Errorf("get entry %q: %w", word, err)
	}
	return entry, nil
}

// ListEntries returns every entry, used by full reindex runs.
func (s *EntryStore) ListEntries(ctx context.Context) ([]dictionary.Entry, error) {
	rows, err := s.db.Query(ctx, listEntriesSQL)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []dictionary.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	return entries, nil
}

func scanEntry(row pgx.Row) (dictionary.Entry, error) {
	var (
		entry      dictionary.Entry
		attributes []byte
	)

	err := row.Scan(
		&entry.Word,
		&entry.PartOfSpeech,
		&entry.Definitions,
		&entry.Examples,
		&entry.Variants,
		&entry.Pronunciation,
		&entry.Contributor,
		&attributes,
		&entry.UpdatedAt,
	)
	if err != nil {
		return dictionary.Entry{}, err
	}

	if len(attributes) > 0 {
		if err := json.Unmarshal(attributes, &entry.Attributes); err != nil {
			return dictionary.Entry{}, fmt.Errorf("decode attributes for %q: %w", entry.Word, err)
		}
	}

	return entry, nil
}
