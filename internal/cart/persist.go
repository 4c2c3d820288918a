package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/storefront/internal/menu"
)

// snapshotVersion is the current blob format.
const snapshotVersion = 1

// ErrNoSnapshot is returned by a Persister when nothing is stored under a key.
var ErrNoSnapshot = errors.New("cart: no snapshot")

// Persister stores the serialized cart blob under a key.
type Persister interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, blob []byte) error
}

// PersistenceError wraps a failed snapshot load or save.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("cart: %s snapshot %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// blob is the stored snapshot. Revision is the store version that wrote it,
// so that every process sharing the persister keeps counting from there.
type blob struct {
	Version  int       `json:"version"`
	Revision uint64    `json:"revision,omitempty"`
	SavedAt  time.Time `json:"savedAt"`
	Lines    []Line    `json:"lines"`
}

func encodeSnapshot(lines []Line, revision uint64, now time.Time) ([]byte, error) {
	if lines == nil {
		lines = []Line{}
	}
	return json.Marshal(blob{Version: snapshotVersion, Revision: revision, SavedAt: now.UTC(), Lines: lines})
}

// decodeSnapshot parses a blob and repairs it: lines with no product or a
// non-positive quantity are dropped, ids are re-derived and duplicates merged.
func decodeSnapshot(data []byte) ([]Line, uint64, error) {
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, 0, fmt.Errorf("decode: %w", err)
	}
	if b.Version != snapshotVersion {
		return nil, 0, fmt.Errorf("unsupported snapshot version %d", b.Version)
	}
	out := make([]Line, 0, len(b.Lines))
	index := make(map[string]int, len(b.Lines))
	for _, l := range b.Lines {
		if l.ProductID == "" || l.Quantity < 1 {
			continue
		}
		if l.Options == nil {
			l.Options = []menu.OptionItem{}
		}
		if l.RemovedIngredients == nil {
			l.RemovedIngredients = []string{}
		}
		l.ID = l.identity()
		if i, ok := index[l.ID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ID] = len(out)
		out = append(out, l)
	}
	return out, b.Revision, nil
}
