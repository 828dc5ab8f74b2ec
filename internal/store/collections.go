package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/luminareader/lumina-server/internal/domain"
)

const collectionPrefix = "collection:"

// Collection operations.

// CreateCollection creates a new collection.
func (s *Store) CreateCollection(ctx context.Context, collection *domain.Collection) error {
	key := []byte(collectionPrefix + collection.ID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return ErrCollectionExists
	}

	if err := s.set(key, collection); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("collection created", "id", collection.ID, "name", collection.Name, "type", collection.Type)
	}
	s.emit(CollectionChanged{Collection: collection})
	return nil
}

// GetCollection retrieves a collection by ID.
func (s *Store) GetCollection(ctx context.Context, collectionID string) (*domain.Collection, error) {
	key := []byte(collectionPrefix + collectionID)

	var collection domain.Collection
	err := s.get(key, &collection)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrCollectionNotFound
		}
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return &collection, nil
}

// UpdateCollection updates an existing collection.
func (s *Store) UpdateCollection(ctx context.Context, collection *domain.Collection) error {
	key := []byte(collectionPrefix + collection.ID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if !exists {
		return ErrCollectionNotFound
	}

	if err := s.set(key, collection); err != nil {
		return fmt.Errorf("update collection: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("collection updated", "id", collection.ID, "name", collection.Name)
	}
	s.emit(CollectionChanged{Collection: collection})
	return nil
}

// DeleteCollection removes a collection record. Protection of seeded smart
// collections is a service-level rule; the store deletes what it is told to.
func (s *Store) DeleteCollection(ctx context.Context, collectionID string) error {
	key := []byte(collectionPrefix + collectionID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if !exists {
		return ErrCollectionNotFound
	}

	if err := s.delete(key); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("collection deleted", "id", collectionID)
	}
	s.emit(CollectionChanged{Deleted: collectionID})
	return nil
}

// ListCollections returns every collection in key order.
func (s *Store) ListCollections(ctx context.Context) ([]*domain.Collection, error) {
	return listPrefix[domain.Collection](s, collectionPrefix)
}
