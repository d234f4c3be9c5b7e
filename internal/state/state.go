// Package state persists a best-effort snapshot of positions, realized
// PnL, and tuned thresholds. Price/score histories are deliberately not
// saved; they rebuild from scratch after a restart.
package state

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// PositionSnapshot mirrors one ledger position on disk.
type PositionSnapshot struct {
	Chain    string  `json:"chain"`
	Qty      float64 `json:"qty"`
	AvgCost  float64 `json:"avg_cost"`
	OpenedAt string  `json:"opened_at,omitempty"`
}

// ThresholdSnapshot mirrors one token's tuned cutoffs on disk.
type ThresholdSnapshot struct {
	ScoreBuy  float64 `json:"score_buy"`
	ScoreSell float64 `json:"score_sell"`
	RSIBuy    float64 `json:"rsi_buy"`
	RSISell   float64 `json:"rsi_sell"`
}

// Snapshot is the full persisted blob, keyed by token address.
type Snapshot struct {
	RealizedPnLUSD float64                      `json:"realized_pnl_usd"`
	Positions      map[string]PositionSnapshot  `json:"positions"`
	Thresholds     map[string]ThresholdSnapshot `json:"thresholds"`
	SavedAt        string                       `json:"saved_at"`
}

// Store reads and writes snapshots at a fixed path.
type Store struct {
	path string
}

func NewStore(path string) *Store { return &Store{path: path} }

// Save writes the snapshot atomically (tmp file + fsync + rename).
func (s *Store) Save(snap Snapshot) error {
	snap.SavedAt = time.Now().UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data, 0o600)
}

// Load reads the snapshot; found is false when no file exists yet.
func (s *Store) Load() (Snapshot, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, err
	}
	return snap, true, nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	// best-effort fsync parent dir
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
