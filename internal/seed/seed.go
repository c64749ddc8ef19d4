// Package seed loads the three first-run reference documents.
package seed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"stockpilot/internal/core/domain"
)

const (
	skusFile      = "seed-skus.json"
	storesFile    = "seed-stores.json"
	inventoryFile = "seed-inventory.json"
)

// Dir reads the seed documents from one directory. It satisfies
// service.SeedSource.
type Dir struct {
	Path string
}

func (d Dir) Seed() ([]domain.SKU, []domain.Store, []domain.InventoryRecord, error) {
	var (
		skus      []domain.SKU
		stores    []domain.Store
		inventory []domain.InventoryRecord
	)
	if err := readJSON(filepath.Join(d.Path, skusFile), &skus); err != nil {
		return nil, nil, nil, err
	}
	if err := readJSON(filepath.Join(d.Path, storesFile), &stores); err != nil {
		return nil, nil, nil, err
	}
	if err := readJSON(filepath.Join(d.Path, inventoryFile), &inventory); err != nil {
		return nil, nil, nil, err
	}
	return skus, stores, inventory, nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
