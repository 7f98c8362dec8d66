package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/RyanBlaney/melodraw/melody"
)

// readRecord loads a saved melody record from a JSON file.
func readRecord(path string) (melody.Record, error) {
	var rec melody.Record
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}
