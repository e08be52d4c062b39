package store

import (
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"dsesim/src/simulator"
	"dsesim/src/simulator/fault"
)

func openTestDB(t *testing.T) *RunRepository {
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return NewRunRepository(db)
}

func TestRunRoundTrip(t *testing.T) {
	t.Parallel()

	repo := openTestDB(t)
	report := &simulator.Report{
		Application: "pipeline",
		Scheduler:   "comm",
		Period:      12,
		PeriodUS:    12,
		Remaps:      []simulator.Remap{{Fifo: "frame", From: "local", To: "tile"}},
	}
	run, err := NewRun("pipeline", "quad", "comm", report, nil)
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	if err := repo.Create(run); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByRunID(run.RunID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != RunStatusSucceeded || got.Period != 12 || got.Remaps != 1 {
		t.Fatalf("unexpected run %+v", got)
	}
	decoded, err := got.DecodeReport()
	if err != nil || decoded == nil || decoded.Remaps[0].To != "tile" {
		t.Fatalf("report did not survive: %+v %v", decoded, err)
	}
}

func TestFailedRunKeepsErrorKind(t *testing.T) {
	t.Parallel()

	repo := openTestDB(t)
	cause := fault.New(fault.CapacityViolation, "fifo does not fit")
	run, err := NewRun("huge", "tiny", "fcfs", nil, cause)
	if err != nil {
		t.Fatalf("new run: %v", err)
	}
	if err := repo.Create(run); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, _ := repo.GetByRunID(run.RunID)
	if got.Status != RunStatusFailed || got.ErrorKind != "capacity-violation" {
		t.Fatalf("unexpected run %+v", got)
	}
	if report, err := got.DecodeReport(); report != nil || err != nil {
		t.Fatalf("failed runs carry no report")
	}
}

func TestListFiltersAndPages(t *testing.T) {
	t.Parallel()

	repo := openTestDB(t)
	for _, scheduler := range []string{"comm", "baseline", "comm", "fcfs", "comm"} {
		run, _ := NewRun("app", "arch", scheduler, &simulator.Report{}, nil)
		if err := repo.Create(run); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	runs, total, err := repo.List(1, 2, "comm")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(runs) != 2 {
		t.Fatalf("expected 2 of 3 comm runs, got %d of %d", len(runs), total)
	}
	if runs[0].ID < runs[1].ID {
		t.Fatalf("expected newest first")
	}

	if err := repo.Delete(runs[0].RunID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByRunID(runs[0].RunID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
