package engine

import (
	"context"
	"fmt"
	"sort"
)

// Migrate copies every record from src to dst and returns how many were copied.
// This works for any pair of backends, e.g.:
// - file -> sqlite (moving off the JSON directory)
// - sqlite -> redis (sharing records between daemons)
func Migrate(ctx context.Context, src, dst Backend) (int, error) {
	snaps, err := src.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load records: %w", err)
	}

	ids := make([]string, 0, len(snaps))
	for id := range snaps {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for n, id := range ids {
		if err := dst.Save(ctx, id, snaps[id]); err != nil {
			return n, fmt.Errorf("failed to save record %s in destination: %w", id, err)
		}
	}
	return len(ids), nil
}
