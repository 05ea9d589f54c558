package agent

import (
	"context"
	"fmt"
	"strings"
)

// NewCatalog creates a postgres-backed catalog when a database URL is
// configured, a file-backed one when an agents file is given, and the
// built-in in-memory catalog otherwise. With both set, the file's agents are
// upserted into postgres on start.
func NewCatalog(ctx context.Context, databaseURL, agentsFile string) (Catalog, error) {
	var file *InMemoryCatalog
	if strings.TrimSpace(agentsFile) != "" {
		c, err := LoadFile(agentsFile)
		if err != nil {
			return nil, err
		}
		file = c
	}

	if strings.TrimSpace(databaseURL) == "" {
		if file != nil {
			return file, nil
		}
		return NewInMemoryCatalog(DefaultAgents()...), nil
	}

	pg, err := NewPostgresCatalog(ctx, databaseURL, DefaultAgents())
	if err != nil {
		return nil, err
	}
	if file != nil {
		if err := seedFrom(ctx, pg, file); err != nil {
			_ = pg.Close()
			return nil, err
		}
	}
	return pg, nil
}

type upserter interface {
	Upsert(ctx context.Context, a Agent) error
}

func seedFrom(ctx context.Context, dst upserter, src Catalog) error {
	agents, err := src.List(ctx)
	if err != nil {
		return err
	}
	for _, a := range agents {
		if err := dst.Upsert(ctx, a); err != nil {
			return fmt.Errorf("seed agents file: %w", err)
		}
	}
	return nil
}
