package batch

import (
	"encoding/json"
	"io"
	"sort"
	"sync"
)

// Result is the outcome of one job.
type Result struct {
	Name        string `json:"name"`
	Ticks       uint64 `json:"ticks"`
	PC          uint16 `json:"pc"`
	Halted      bool   `json:"halted"`
	Locked      bool   `json:"locked"`
	Stopped     bool   `json:"stopped,omitempty"` // a step script called stop()
	Fingerprint string `json:"fingerprint,omitempty"`
	Err         string `json:"error,omitempty"`
}

// Table stores job results. It is safe for concurrent use.
type Table struct {
	mu      sync.Mutex
	results []Result
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{}
}

// Add inserts a result into the table.
func (t *Table) Add(r Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.results = append(t.results, r)
}

// Results returns a copy of all results, sorted by job name.
func (t *Table) Results() []Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Result, len(t.results))
	copy(out, t.results)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Len returns the number of results.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.results)
}

// WriteJSON writes results as an indented JSON array.
func WriteJSON(w io.Writer, results []Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// ReadJSON reads results written by WriteJSON.
func ReadJSON(r io.Reader) ([]Result, error) {
	var results []Result
	if err := json.NewDecoder(r).Decode(&results); err != nil {
		return nil, err
	}
	return results, nil
}
