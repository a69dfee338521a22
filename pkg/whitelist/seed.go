package whitelist

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/duskpool/core/pkg/field"
)

// seedEntry is one line of the bootstrap participant file: a trader
// identifier paired with its on-chain registry ID, decimal-encoded.
type seedEntry struct {
	Trader string `json:"trader"`
	ID     string `json:"id"`
}

// LoadSeed reads a JSON array of {trader, id} entries from path and builds
// the participant list Build expects. This in-process file is the
// deliberately out-of-scope placeholder for resolving whitelist membership
// against the on-chain compliance registry (see §9 Q2).
func LoadSeed(path string) ([]Participant, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("whitelist: reading seed file %q: %w", path, err)
	}

	var entries []seedEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("whitelist: parsing seed file %q: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("whitelist: seed file %q has no participants", path)
	}

	participants := make([]Participant, len(entries))
	for i, e := range entries {
		id, err := field.FromDecimalString(e.ID)
		if err != nil {
			return nil, fmt.Errorf("whitelist: seed entry %d (%s): %w", i, e.Trader, err)
		}
		participants[i] = Participant{Trader: e.Trader, ID: id}
	}
	return participants, nil
}
