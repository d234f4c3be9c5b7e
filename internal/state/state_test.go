package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	st := NewStore(path)

	in := Snapshot{
		RealizedPnLUSD: 12.5,
		Positions: map[string]PositionSnapshot{
			"0xabc": {Chain: "ETH", Qty: 50, AvgCost: 2},
		},
		Thresholds: map[string]ThresholdSnapshot{
			"0xabc": {ScoreBuy: 0.62, ScoreSell: 0.41, RSIBuy: 58, RSISell: 44},
		},
	}
	if err := st.Save(in); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	out, found, err := st.Load()
	if err != nil || !found {
		t.Fatalf("load failed: found=%v err=%v", found, err)
	}
	if out.RealizedPnLUSD != in.RealizedPnLUSD {
		t.Fatalf("realized mismatch: %f", out.RealizedPnLUSD)
	}
	if out.Positions["0xabc"] != in.Positions["0xabc"] {
		t.Fatalf("position mismatch: %+v", out.Positions["0xabc"])
	}
	if out.Thresholds["0xabc"] != in.Thresholds["0xabc"] {
		t.Fatalf("threshold mismatch: %+v", out.Thresholds["0xabc"])
	}
	if out.SavedAt == "" {
		t.Fatalf("expected save timestamp")
	}
}

func TestLoadMissingFile(t *testing.T) {
	st := NewStore(filepath.Join(t.TempDir(), "absent.json"))
	_, found, err := st.Load()
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if found {
		t.Fatalf("missing file should report not found")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := NewStore(path).Load(); err == nil {
		t.Fatalf("corrupt file should error")
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	st := NewStore(filepath.Join(dir, "state.json"))
	if err := st.Save(Snapshot{}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.json" {
		t.Fatalf("unexpected directory contents: %v", entries)
	}
}
