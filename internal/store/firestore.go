package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var _ TokenStore = (*FirestoreStore)(nil)

const defaultTokenCollection = "connectd_user_tokens"

// FirestoreStore persists token records in Google Cloud Firestore, one
// document per (user, provider) pair.
//
// Reads return errors explicitly: missing credentials must surface as a
// typed failure rather than being papered over.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreStore creates a Firestore-backed token store
func NewFirestoreStore(ctx context.Context, projectID, database, collection string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required")
	}
	if collection == "" {
		collection = defaultTokenCollection
	}

	var client *firestore.Client
	var err error
	if database != "" && database != "(default)" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, database)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return &FirestoreStore{
		client:     client,
		collection: collection,
	}, nil
}

func (s *FirestoreStore) doc(userID, providerID string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(userID + ":" + providerID)
}

// Get retrieves the record for a (user, provider) pair
func (s *FirestoreStore) Get(ctx context.Context, userID, providerID string) (*TokenRecord, error) {
	snap, err := s.doc(userID, providerID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("firestore get: %w", err)
	}

	var record TokenRecord
	if err := snap.DataTo(&record); err != nil {
		return nil, fmt.Errorf("decoding token record: %w", err)
	}
	return &record, nil
}

// Put stores or replaces the record for a (user, provider) pair
func (s *FirestoreStore) Put(ctx context.Context, userID, providerID string, record *TokenRecord) error {
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}

	if _, err := s.doc(userID, providerID).Set(ctx, record); err != nil {
		return fmt.Errorf("firestore set: %w", err)
	}
	return nil
}

// Delete removes the record for a (user, provider) pair
func (s *FirestoreStore) Delete(ctx context.Context, userID, providerID string) error {
	if _, err := s.doc(userID, providerID).Delete(ctx); err != nil {
		return fmt.Errorf("firestore delete: %w", err)
	}
	return nil
}

// ListProviders returns all providers for which a user has a stored record
func (s *FirestoreStore) ListProviders(ctx context.Context, userID string) ([]string, error) {
	iter := s.client.Collection(s.collection).Where("user_id", "==", userID).Documents(ctx)
	defer iter.Stop()

	var providers []string
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore query: %w", err)
		}

		var record TokenRecord
		if err := snap.DataTo(&record); err != nil {
			return nil, fmt.Errorf("decoding token record: %w", err)
		}
		providers = append(providers, record.ProviderID)
	}
	return providers, nil
}

// Close releases the underlying Firestore client
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
