package handlers

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"gasplan/internal/api/models"
	"gasplan/internal/batch"
	"gasplan/internal/config"
)

// ScenarioHandler runs scenario descriptors submitted over HTTP.
type ScenarioHandler struct {
	runner *batch.Runner
}

func NewScenarioHandler(runner *batch.Runner) *ScenarioHandler {
	return &ScenarioHandler{runner: runner}
}

// RunScenario handles POST /api/v1/scenarios/run
func (h *ScenarioHandler) RunScenario(c *gin.Context) {
	var req models.ScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	s := toScenario(req)
	if err := s.Validate(); err != nil {
		badRequest(c, "INVALID_SCENARIO", err.Error())
		return
	}

	outcomes := h.runner.Run(c.Request.Context(), []config.Scenario{s})
	c.JSON(http.StatusOK, toOutcomeResponse(outcomes[0]))
}

// RunBatch handles POST /api/v1/scenarios/batch
func (h *ScenarioHandler) RunBatch(c *gin.Context) {
	var req models.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", err.Error())
		return
	}

	scenarios := make([]config.Scenario, 0, len(req.Scenarios))
	for _, sr := range req.Scenarios {
		s := toScenario(sr)
		if err := s.Validate(); err != nil {
			badRequest(c, "INVALID_SCENARIO", err.Error())
			return
		}
		scenarios = append(scenarios, s)
	}

	outcomes := h.runner.Run(c.Request.Context(), scenarios)
	resp := models.BatchResponse{}
	for _, o := range outcomes {
		or := toOutcomeResponse(o)
		if or.Error != "" {
			resp.Failed++
		}
		resp.Outcomes = append(resp.Outcomes, or)
	}
	c.JSON(http.StatusOK, resp)
}

// ListModules handles GET /api/v1/modules
func ListModules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"modules": []string{
			config.ModuleNetworkBuild,
			config.ModuleWellBuild,
			config.ModuleLNGBuild,
			config.ModuleBalance,
			config.ModuleDemandResponse,
		},
		"demand_modules": []string{"constant-elasticity"},
	})
}

func toScenario(req models.ScenarioRequest) config.Scenario {
	return config.Scenario{
		Name:                req.Name,
		InputsDir:           req.InputsDir,
		OutputsDir:          req.OutputsDir,
		Modules:             req.Modules,
		Iterate:             req.Iterate,
		FlatPricing:         req.FlatPricing,
		DemandModule:        req.DemandModule,
		Aliases:             req.Aliases,
		Tolerance:           req.Tolerance,
		QuantityFloor:       req.QuantityFloor,
		MaxIterations:       req.MaxIterations,
		BidSegments:         req.BidSegments,
		PriceFloor:          req.PriceFloor,
		SolveTimeoutSeconds: req.SolveTimeoutSeconds,
	}
}

func toOutcomeResponse(o batch.Outcome) models.OutcomeResponse {
	resp := models.OutcomeResponse{
		Scenario:   o.Scenario,
		RunID:      o.RunID,
		State:      o.State,
		Iterations: o.Iterations,
	}
	if !math.IsNaN(o.Objective) {
		resp.Objective = o.Objective
	}
	if o.Err != nil {
		resp.Error = o.Err.Error()
	}
	return resp
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: models.ErrorDetail{Code: code, Message: message},
	})
}
