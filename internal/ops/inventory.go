package ops

import (
	"context"

	"github.com/hpungsan/ghar/internal/household"
	"github.com/hpungsan/ghar/internal/store"
)

// InventoryItem describes one stored key.
type InventoryItem struct {
	Key    string        `json:"storage_key"`
	Tag    household.Tag `json:"tag,omitempty"`
	Count  int           `json:"count"`
	Legacy bool          `json:"legacy,omitempty"`
	// Unknown is set for keys no domain owns; they are listed but never loaded.
	Unknown bool `json:"unknown,omitempty"`
}

// InventoryOutput contains the result of the Inventory operation.
type InventoryOutput struct {
	Items []InventoryItem `json:"items"`
	Total int             `json:"total_records"`
}

// Inventory lists the storage keys that have been written, with record counts.
// It never creates keys.
func Inventory(ctx context.Context, s store.Store) (*InventoryOutput, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}

	output := &InventoryOutput{Items: make([]InventoryItem, 0, len(keys))}
	for _, key := range keys {
		item := InventoryItem{Key: key}
		tag, known := household.TagForKey(key)
		if !known {
			item.Unknown = true
			output.Items = append(output.Items, item)
			continue
		}
		coll, err := s.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		item.Tag = tag
		item.Count = len(coll)
		item.Legacy = key == household.LegacyWifiKey
		output.Total += item.Count
		output.Items = append(output.Items, item)
	}
	return output, nil
}
