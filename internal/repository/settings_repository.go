package repository

import (
	"context"
	"fmt"

	"github.com/haneul-lab/storybook-api/internal/rowstore"
)

const (
	settingColKey = iota + 1
	settingColValue
)

// SettingsRepository maps the flat key-value settings collection.
type SettingsRepository struct {
	store rowstore.Store
}

// NewSettingsRepository creates a new instance of SettingsRepository.
func NewSettingsRepository(store rowstore.Store) *SettingsRepository {
	return &SettingsRepository{store: store}
}

// All returns every settings pair.
func (r *SettingsRepository) All(ctx context.Context) (map[string]string, error) {
	rows, err := r.store.ListRows(ctx, rowstore.CollectionSettings)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		out[row[settingColKey-1]] = row[settingColValue-1]
	}
	return out, nil
}

// Get returns one value; found is false for an absent key.
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	rows, err := r.store.ListRows(ctx, rowstore.CollectionSettings)
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	for _, row := range rows {
		if len(row) >= 2 && row[settingColKey-1] == key {
			return row[settingColValue-1], true, nil
		}
	}
	return "", false, nil
}

// Set writes a value, appending the key on first use.
func (r *SettingsRepository) Set(ctx context.Context, key, value string) error {
	rows, err := r.store.ListRows(ctx, rowstore.CollectionSettings)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	for i, row := range rows {
		if len(row) >= 2 && row[settingColKey-1] == key {
			if err := r.store.WriteCell(ctx, rowstore.CollectionSettings, i+1, settingColValue, value); err != nil {
				return fmt.Errorf("set setting %s: %w", key, err)
			}
			return nil
		}
	}
	if err := r.store.AppendRow(ctx, rowstore.CollectionSettings, []string{key, value}); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// Delete removes a key if present.
func (r *SettingsRepository) Delete(ctx context.Context, key string) error {
	rows, err := r.store.ListRows(ctx, rowstore.CollectionSettings)
	if err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	for i, row := range rows {
		if len(row) >= 2 && row[settingColKey-1] == key {
			if err := r.store.DeleteRow(ctx, rowstore.CollectionSettings, i+1); err != nil {
				return fmt.Errorf("delete setting %s: %w", key, err)
			}
			return nil
		}
	}
	return nil
}
