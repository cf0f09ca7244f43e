package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/fourbar/internal/config"
	"github.com/san-kum/fourbar/internal/sim"
)

func testResult() *sim.Result {
	return &sim.Result{
		States: []sim.State{
			{45.0, 0.0},
			{44.9, -0.1},
		},
		Times:      []float64{0.0, 0.05},
		StepsTaken: 1,
		Metrics: map[string]float64{
			"energy": 1.5,
		},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.Drive.Stiffness = 0.4

	runID, err := st.Save(cfg, testResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, RunPrefix) {
		t.Errorf("run id %q missing prefix", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Drive.Stiffness != 0.4 {
		t.Errorf("expected stiffness 0.4, got %f", meta.Drive.Stiffness)
	}
	if meta.Geometry != cfg.Geometry {
		t.Errorf("geometry mismatch: %+v", meta.Geometry)
	}
	if meta.Metrics["energy"] != 1.5 {
		t.Errorf("expected energy 1.5, got %f", meta.Metrics["energy"])
	}

	states, times, err := st.LoadStates(runID)
	if err != nil {
		t.Fatalf("load states failed: %v", err)
	}
	if len(states) != 2 || len(times) != 2 {
		t.Fatalf("expected 2 rows, got %d states %d times", len(states), len(times))
	}
	if states[1][0] != 44.9 || states[1][1] != -0.1 {
		t.Errorf("unexpected row %v", states[1])
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	first, _ := st.Save(cfg, testResult())
	second, _ := st.Save(cfg, testResult())

	// stray directories without metadata are skipped
	if err := os.MkdirAll(filepath.Join(st.Dir(), "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != second || runs[1].ID != first {
		t.Errorf("expected newest first, got %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "nope"))
	runs, err := st.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestStoreLoadMissing(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("fourbar_missing"); err == nil {
		t.Error("expected error for missing run")
	}
	if _, _, err := st.LoadStates("fourbar_missing"); err == nil {
		t.Error("expected error for missing states")
	}
}

func TestLoadResultRoundTrip(t *testing.T) {
	st := New(t.TempDir())
	cfg := config.DefaultConfig()
	cfg.Integrator = "rk4"

	res := testResult()
	res.Settled = true
	res.SettledAt = 0.05

	runID, err := st.Save(cfg, res)
	if err != nil {
		t.Fatal(err)
	}

	meta, loaded, err := st.LoadResult(runID)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.Settled || loaded.SettledAt != 0.05 {
		t.Errorf("settle info lost: %+v", loaded)
	}
	if got := meta.Config(); got.Integrator != "rk4" || got.Drive != cfg.Drive {
		t.Errorf("config not rebuilt: %+v", got)
	}
}
