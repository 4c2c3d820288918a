package menu

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileSource serves a static menu described in a YAML file. It is used for
// local development and demos without a backend.
type FileSource struct {
	Path string
}

// fileMenu holds either a single store or a list of stores. Every store of
// the file shares the categories section.
type fileMenu struct {
	Store      Store      `json:"store"`
	Stores     []Store    `json:"stores"`
	Categories []Category `json:"categories"`
}

func (m fileMenu) stores() []Store {
	if len(m.Stores) > 0 {
		return m.Stores
	}
	if m.Store.ID == "" && m.Store.Name == "" {
		return nil
	}
	return []Store{m.Store}
}

func (f FileSource) load() (fileMenu, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return fileMenu{}, fmt.Errorf("menu: read %s: %w", f.Path, err)
	}
	return decodeYAML(raw)
}

// decodeYAML goes through JSON so that prices use the same decoding rules
// as backend payloads.
func decodeYAML(raw []byte) (fileMenu, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fileMenu{}, fmt.Errorf("menu: parse yaml: %w", err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fileMenu{}, fmt.Errorf("menu: convert yaml: %w", err)
	}
	var out fileMenu
	if err := json.Unmarshal(data, &out); err != nil {
		return fileMenu{}, fmt.Errorf("menu: decode menu: %w", err)
	}
	return out, nil
}

// Stores returns every store of the file.
func (f FileSource) Stores(context.Context) ([]Store, error) {
	m, err := f.load()
	if err != nil {
		return nil, err
	}
	return m.stores(), nil
}

// Store returns one store of the file. An empty storeID, or a store without
// an id, matches the first store.
func (f FileSource) Store(_ context.Context, storeID string) (Store, error) {
	m, err := f.load()
	if err != nil {
		return Store{}, err
	}
	for _, st := range m.stores() {
		if storeID == "" || st.ID == "" || st.ID == storeID {
			return st, nil
		}
	}
	return Store{}, fmt.Errorf("%w: %s", ErrStoreNotFound, storeID)
}

// Categories returns the categories section of the file.
func (f FileSource) Categories(_ context.Context, _ Store) ([]Category, error) {
	m, err := f.load()
	if err != nil {
		return nil, err
	}
	return m.Categories, nil
}
