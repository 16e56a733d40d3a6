package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/celerix-dev/celerix-passport/pkg/passport"
)

// Persistence stores one JSON document per record in a directory.
type Persistence struct {
	DataDir string
	codec   Codec
	mu      sync.Mutex // Protects concurrent writes to the filesystem
	backendLog
}

// NewPersistence initializes a file backend rooted at dir.
func NewPersistence(dir string, codec Codec) (*Persistence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Persistence{DataDir: dir, codec: codec}, nil
}

// Save writes a single record's document atomically.
func (p *Persistence) Save(ctx context.Context, id string, snap passport.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" || filepath.Base(id) != id || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidRecordID, id)
	}
	data, err := p.codec.Encode(snap)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	filePath := filepath.Join(p.DataDir, id+".json")
	tempPath := filePath + ".tmp"

	// Write to a temporary file first, then swap it in with a rename so a crash
	// leaves either the old document or the new one.
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tempPath, filePath)
}

// LoadAll returns all record documents found in the data directory.
// Unreadable documents are skipped with a warning.
func (p *Persistence) LoadAll(ctx context.Context) (map[string]passport.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	files, err := os.ReadDir(p.DataDir)
	if err != nil {
		return nil, err
	}

	all := make(map[string]passport.Snapshot)
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := strings.TrimSuffix(file.Name(), ".json")

		content, err := os.ReadFile(filepath.Join(p.DataDir, file.Name()))
		if err != nil {
			p.logger().Warn("could not read passport file", "file", file.Name(), "error", err)
			continue
		}
		snap, err := p.codec.Decode(content)
		if err != nil {
			p.logger().Warn("could not decode passport file", "file", file.Name(), "error", err)
			continue
		}
		all[id] = snap
	}
	return all, nil
}

// Close is a no-op; files are closed after every write.
func (p *Persistence) Close() error {
	return nil
}
