// Package records persists extracted text records.
//
// Persistence is off unless PERSIST_RESULTS=true. When it is off no Store is
// constructed and nothing is written. FirestoreStore keeps one document per
// file name; SheetsStore appends one spreadsheet row per processed file.
package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidDocumentID is returned when a file name cannot be used as a
	// document ID.
	ErrInvalidDocumentID = errors.New("invalid document ID")
)

// Record is the extracted text of one stored object, keyed by FileName.
type Record struct {
	FileName      string `firestore:"file_name" json:"file_name"`
	Bucket        string `firestore:"bucket" json:"bucket"`
	ExtractedText string `firestore:"extracted_text" json:"extracted_text"`
	ContentType   string `firestore:"content_type" json:"content_type"`
}

// Store writes records.
type Store interface {
	// Save writes r. Keyed stores create or replace the record with ID
	// r.FileName.
	Save(ctx context.Context, r Record) error
	Close() error
}

// documentID validates a file name for use as a document ID. Firestore IDs
// may not contain '/' and may not be "." or "..".
func documentID(fileName string) (string, error) {
	switch {
	case fileName == "":
		return "", fmt.Errorf("%w: empty file name", ErrInvalidDocumentID)
	case fileName == "." || fileName == "..":
		return "", fmt.Errorf("%w: %q", ErrInvalidDocumentID, fileName)
	case strings.Contains(fileName, "/"):
		return "", fmt.Errorf("%w: %q contains '/'", ErrInvalidDocumentID, fileName)
	}
	return fileName, nil
}
