package db

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/railquery/railquery_core/internal/transfer"
)

// HubStore resolves transfer hubs from the transfer_hubs table,
// falling back to the built-in corridor table when the lookup fails
// or returns no rows.
//
// Schema:
//
//	CREATE TABLE transfer_hubs (
//	    origin      text NOT NULL,
//	    destination text NOT NULL,
//	    hub         text NOT NULL,
//	    priority    int  NOT NULL,
//	    PRIMARY KEY (origin, destination, hub)
//	);
type HubStore struct {
	pool     *pgxpool.Pool
	fallback transfer.HubSource
}

func NewHubStore(pool *pgxpool.Pool) *HubStore {
	return &HubStore{pool: pool, fallback: transfer.StaticHubSource{}}
}

func (s *HubStore) HubsFor(ctx context.Context, from, to string) ([]string, error) {
	hubs, err := s.queryHubs(ctx, from, to)
	if err != nil {
		log.Printf("hub lookup failed for %s -> %s, using built-in table: %v", from, to, err)
		return s.fallback.HubsFor(ctx, from, to)
	}
	if len(hubs) == 0 {
		return s.fallback.HubsFor(ctx, from, to)
	}
	return hubs, nil
}

func (s *HubStore) queryHubs(ctx context.Context, from, to string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT hub FROM transfer_hubs
		 WHERE origin = $1 AND destination = $2
		 ORDER BY priority`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("querying transfer hubs: %w", err)
	}
	defer rows.Close()

	var hubs []string
	for rows.Next() {
		var hub string
		if err := rows.Scan(&hub); err != nil {
			return nil, fmt.Errorf("scanning hub row: %w", err)
		}
		hubs = append(hubs, hub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading hub rows: %w", err)
	}
	return hubs, nil
}
