package store

import (
	"encoding/json"
	"time"

	"github.com/rs/xid"

	"dsesim/src/simulator"
	"dsesim/src/simulator/fault"
)

type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one persisted simulation. Report holds the JSON encoded report of a
// successful run.
type Run struct {
	ID             uint      `json:"-" gorm:"primaryKey;autoIncrement"`
	RunID          string    `json:"id" gorm:"uniqueIndex;not null;size:20"`
	Application    string    `json:"application" gorm:"size:255"`
	Architecture   string    `json:"architecture" gorm:"size:255"`
	Scheduler      string    `json:"scheduler" gorm:"size:20;index"`
	Status         RunStatus `json:"status" gorm:"size:20;not null"`
	ErrorKind      string    `json:"error_kind,omitempty" gorm:"size:40"`
	Error          string    `json:"error,omitempty" gorm:"type:text"`
	Period         int       `json:"period"`
	PeriodUS       float64   `json:"period_us"`
	Makespan       float64   `json:"makespan_us"`
	AchievedPeriod float64   `json:"achieved_period_us"`
	Remaps         int       `json:"remaps"`
	Report         string    `json:"-" gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// NewRun records the outcome of a simulation under a fresh id.
func NewRun(application, architecture, scheduler string, report *simulator.Report, err error) (*Run, error) {
	run := &Run{
		RunID:        xid.New().String(),
		Application:  application,
		Architecture: architecture,
		Scheduler:    scheduler,
		Status:       RunStatusSucceeded,
	}
	if err != nil {
		run.Status = RunStatusFailed
		run.ErrorKind = fault.KindOf(err).String()
		run.Error = err.Error()
		return run, nil
	}

	encoded, jerr := json.Marshal(report)
	if jerr != nil {
		return nil, jerr
	}
	run.Report = string(encoded)
	run.Period = report.Period
	run.PeriodUS = report.PeriodUS
	run.Makespan = report.Makespan
	run.AchievedPeriod = report.AchievedPeriod
	run.Remaps = len(report.Remaps)
	return run, nil
}

// DecodeReport returns the stored report, or nil for failed runs.
func (r *Run) DecodeReport() (*simulator.Report, error) {
	if r.Report == "" {
		return nil, nil
	}
	report := &simulator.Report{}
	if err := json.Unmarshal([]byte(r.Report), report); err != nil {
		return nil, err
	}
	return report, nil
}
