package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dsesim/src/misc"
	"dsesim/src/simulator"
	"dsesim/src/simulator/fault"
	"dsesim/src/store"
)

type HealthHandler struct {
	started time.Time
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{started: time.Now()}
}

func (h *HealthHandler) CheckHealth(c *gin.Context) {
	Success(c, map[string]interface{}{
		"status":    "up",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"service":   "dsesim",
	})
}

// ScheduleHandler runs scenarios posted to the API and serves stored runs.
type ScheduleHandler struct {
	runs     *store.RunRepository
	defaults simulator.Config
}

func NewScheduleHandler(runs *store.RunRepository, defaults simulator.Config) *ScheduleHandler {
	return &ScheduleHandler{runs: runs, defaults: defaults}
}

type scheduleResult struct {
	Run    *store.Run        `json:"run"`
	Report *simulator.Report `json:"report,omitempty"`
}

// CreateSchedule simulates the scenario in the request body (YAML or JSON).
// The "mode" query parameter overrides the scenario's scheduler mode.
// Simulation failures are stored and returned as failed runs.
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	scenario, err := misc.DecodeScenario(c.Request.Body)
	if err != nil {
		Error(c, VALIDATION_ERROR, err.Error())
		return
	}
	a, g, b, err := scenario.Build()
	if err != nil {
		Error(c, VALIDATION_ERROR, err.Error())
		return
	}

	config, err := simulator.ConfigFromScenario(scenario.Scheduler)
	if err != nil {
		Error(c, VALIDATION_ERROR, err.Error())
		return
	}
	if mode := c.Query("mode"); mode != "" {
		parsed, ok := misc.SchedulerModeFromString(mode)
		if !ok {
			Error(c, VALIDATION_ERROR, "unknown scheduler mode "+mode)
			return
		}
		config.Mode = parsed
	}
	config.Logger = h.defaults.Logger

	report, runErr := simulator.Run(a, g, b, config)
	if runErr != nil && fault.Is(runErr, fault.InvalidInput) {
		Error(c, VALIDATION_ERROR, runErr.Error())
		return
	}

	run, err := store.NewRun(g.Name, a.Name, string(config.Mode), report, runErr)
	if err != nil {
		Error(c, ERROR, err.Error())
		return
	}
	if err := h.runs.Create(run); err != nil {
		Error(c, ERROR, "failed to store run")
		return
	}
	Success(c, scheduleResult{Run: run, Report: report})
}

func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	run, err := h.runs.GetByRunID(c.Param("id"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		Error(c, NOT_FOUND, "run "+c.Param("id")+" does not exist")
		return
	}
	if err != nil {
		Error(c, ERROR, err.Error())
		return
	}

	report, err := run.DecodeReport()
	if err != nil {
		Error(c, ERROR, err.Error())
		return
	}
	Success(c, scheduleResult{Run: run, Report: report})
}

func (h *ScheduleHandler) ListSchedules(c *gin.Context) {
	current, _ := strconv.Atoi(c.DefaultQuery("current", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	runs, total, err := h.runs.List(current, size, c.Query("scheduler"))
	if err != nil {
		Error(c, ERROR, "failed to list runs")
		return
	}
	SuccessWithPage(c, runs, current, size, total)
}
