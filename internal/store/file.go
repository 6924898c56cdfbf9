package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"campaign-engine/internal/model"
	"campaign-engine/internal/segmentation"
)

// FileStore reads JSONL files (one JSON object per line) from a data directory:
// customers.jsonl, regions.jsonl, products.jsonl, orders.jsonl and climate.jsonl.
// Missing files read as empty collections.
type FileStore struct {
	dataDir string
}

func NewFileStore(dataDir string) *FileStore {
	return &FileStore{dataDir: dataDir}
}

func (s *FileStore) ListCustomers(ctx context.Context, limit, offset int) ([]Customer, error) {
	all, err := readJSONL[Customer](filepath.Join(s.dataDir, "customers.jsonl"))
	if err != nil {
		return nil, err
	}
	return page(all, limit, offset), nil
}

func (s *FileStore) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	all, err := readJSONL[Customer](filepath.Join(s.dataDir, "customers.jsonl"))
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].CustomerID == customerID {
			return &all[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) RegionForCity(ctx context.Context, city string) (*model.Region, error) {
	regions, err := readJSONL[model.Region](filepath.Join(s.dataDir, "regions.jsonl"))
	if err != nil {
		return nil, err
	}
	for i := range regions {
		for _, c := range regions[i].Cities {
			if strings.EqualFold(c, city) {
				return &regions[i], nil
			}
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) Products(ctx context.Context, tenantID string, limit int) ([]model.Product, error) {
	all, err := readJSONL[model.Product](filepath.Join(s.dataDir, "products.jsonl"))
	if err != nil {
		return nil, err
	}
	out := []model.Product{}
	for _, p := range all {
		if tenantID != "" && p.TenantID != "" && p.TenantID != tenantID {
			continue
		}
		out = append(out, p)
	}
	return page(out, limit, 0), nil
}

func (s *FileStore) Orders(ctx context.Context, tenantID string, since time.Time) ([]model.Order, error) {
	all, err := readJSONL[model.Order](filepath.Join(s.dataDir, "orders.jsonl"))
	if err != nil {
		return nil, err
	}
	out := []model.Order{}
	for _, o := range all {
		t, err := segmentation.ParseTimestamp(o.Date)
		if err != nil || t.Before(since) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *FileStore) Climate(ctx context.Context) (map[string]model.Climate, error) {
	all, err := readJSONL[model.Climate](filepath.Join(s.dataDir, "climate.jsonl"))
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Climate, len(all))
	for _, c := range all {
		out[c.City] = c
	}
	return out, nil
}

func (s *FileStore) Close(ctx context.Context) error { return nil }

// readJSONL decodes every non-empty line of path. Lines that do not decode are skipped.
func readJSONL[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	out := []T{}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}
