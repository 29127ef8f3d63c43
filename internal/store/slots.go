package store

import (
	"encoding/json"
	"fmt"

	"github.com/martinwickman/tabswitch/internal/host"
)

// encodeSlots maps a snapshot onto its named slots. Unset optional slots are
// left out so the backing store can drop them.
func encodeSlots(snap Snapshot) (map[string]json.RawMessage, error) {
	tabs := snap.RecentTabs
	if tabs == nil {
		tabs = []host.TabID{}
	}
	slots := make(map[string]json.RawMessage, 3)
	raw, err := json.Marshal(tabs)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", KeyRecentTabs, err)
	}
	slots[KeyRecentTabs] = raw
	if snap.LastWindowID != host.NoWindow {
		slots[KeyLastWindowID] = json.RawMessage(fmt.Sprintf("%d", snap.LastWindowID))
	}
	if snap.HostGeneration != 0 {
		slots[KeyHostGeneration] = json.RawMessage(fmt.Sprintf("%d", snap.HostGeneration))
	}
	return slots, nil
}

// decodeSlots is the inverse of encodeSlots. Missing slots yield an empty
// list, host.NoWindow and generation zero.
func decodeSlots(slots map[string]json.RawMessage) (Snapshot, error) {
	snap := Empty()
	if raw, ok := slots[KeyRecentTabs]; ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &snap.RecentTabs); err != nil {
			return Empty(), fmt.Errorf("decoding %s: %w", KeyRecentTabs, err)
		}
	}
	if raw, ok := slots[KeyLastWindowID]; ok && len(raw) > 0 && string(raw) != "null" {
		var w host.WindowID
		if err := json.Unmarshal(raw, &w); err != nil {
			return Empty(), fmt.Errorf("decoding %s: %w", KeyLastWindowID, err)
		}
		snap.LastWindowID = w
	}
	if raw, ok := slots[KeyHostGeneration]; ok && len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &snap.HostGeneration); err != nil {
			return Empty(), fmt.Errorf("decoding %s: %w", KeyHostGeneration, err)
		}
	}
	return snap, nil
}
