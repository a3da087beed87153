/*
Package store persists news records keyed by link. MongoDB is the default backend;
PostgreSQL is available for deployments that already run it.
*/
package store

import (
	"context"
	"fmt"

	"github.com/shanehull/cryptobriefs/internal/config"
	"github.com/shanehull/cryptobriefs/internal/types"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Query filters a listing of stored records. Zero values mean "no filter".
type Query struct {
	Limit     int
	Coin      string
	Sentiment types.Sentiment
}

func (q Query) limit() int {
	switch {
	case q.Limit <= 0:
		return DefaultListLimit
	case q.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return q.Limit
	}
}

// Store is implemented by every backend.
type Store interface {
	// FindSentiments returns the stored sentiment for each link that already
	// has a record. Links without a record are absent from the map.
	FindSentiments(ctx context.Context, links []string) (map[string]types.Sentiment, error)
	// Upsert writes rec keyed by its link. Descriptive fields are only written
	// when the record is created; sentiment is always set. inserted is true
	// when a new record was created.
	Upsert(ctx context.Context, rec types.NewsRecord) (inserted bool, err error)
	// List returns records newest first.
	List(ctx context.Context, q Query) ([]types.NewsRecord, error)
	Close(ctx context.Context) error
}

// Open connects to the configured backend and prepares its schema.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		s, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverMongo, "":
		s, err := OpenMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: got %q", config.ErrUnknownStoreDriver, cfg.Driver)
	}
}
