package dictionary

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoWord is returned when an entry is missing its natural key.
var ErrNoWord = errors.New("entry has no word")

// ErrEntryNotFound is returned by record stores when no entry exists for
// the requested word.
var ErrEntryNotFound = errors.New("entry not found")

// Entry is one dictionary record as stored in the primary database.
// The Word field is the natural key; everything else is carried into the
// search document verbatim.
type Entry struct {
	Word          string    `json:"word"`
	PartOfSpeech  string    `json:"part_of_speech,omitempty"`
	Definitions   []string  `json:"definitions,omitempty"`
	Examples      []string  `json:"examples,omitempty"`
	Variants      []string  `json:"variants,omitempty"`
	Pronunciation string    `json:"pronunciation,omitempty"`
	Contributor   string    `json:"contributor,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitzero"`

	// Attributes holds contributor-supplied fields that have no dedicated
	// column. They are flattened into the document alongside the fixed fields.
	Attributes map[string]any `json:"attributes,omitempty"`
}

// DocumentID derives the search document identifier for a word.
// Lowercasing makes lookups case-insensitive: "Ézè" and "ézè" address
// the same document.
func DocumentID(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

// Document serializes the entry into its indexable JSON payload and returns
// the payload together with the derived document ID. An entry without a word
// cannot be addressed in the index and is rejected here rather than at the
// search backend.
func (e Entry) Document() ([]byte, string, error) {
	id := DocumentID(e.Word)
	if id == "" {
		return nil, "", ErrNoWord
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return nil, "", fmt.Errorf("marshal entry %q: %w", e.Word, err)
	}

	return payload, id, nil
}
