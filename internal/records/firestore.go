package records

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// FirestoreStore implements Store on a Firestore collection.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore creates a Firestore client. An empty projectID lets the
// client detect the project from credentials or the environment.
// FIRESTORE_EMULATOR_HOST is honored by the client library.
func NewFirestoreStore(ctx context.Context, projectID, collection string, opts ...option.ClientOption) (*FirestoreStore, error) {
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("records: create firestore client: %w", err)
	}
	return &FirestoreStore{client: client, collection: collection}, nil
}

// Save writes r to {collection}/{file name}, replacing any previous record.
func (s *FirestoreStore) Save(ctx context.Context, r Record) error {
	id, err := documentID(r.FileName)
	if err != nil {
		return fmt.Errorf("records: save: %w", err)
	}
	if _, err := s.client.Collection(s.collection).Doc(id).Set(ctx, r); err != nil {
		return fmt.Errorf("records: save %s/%s: %w", s.collection, id, err)
	}
	return nil
}

// Close closes the underlying Firestore client.
func (s *FirestoreStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
