package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"linkbias/app"
	"linkbias/domain/core"
	"linkbias/domain/run"
	"linkbias/domain/stats"
	"linkbias/internal/errors"
	"linkbias/internal/report"
	"linkbias/internal/simulation"
)

// SimulationPayload is the body of POST /api/simulations. Omitted population
// and simulation fields keep their defaults.
type SimulationPayload struct {
	Kind       string               `json:"kind"`
	Population run.PopulationParams `json:"population"`
	Simulation run.SimulationParams `json:"simulation"`
	Modes      []string             `json:"modes,omitempty"`
	Cutoffs    []int                `json:"cutoffs,omitempty"`
	Precisions []float64            `json:"precisions,omitempty"`
	KeepTrials *bool                `json:"keep_trials,omitempty"`
	FailFast   bool                 `json:"fail_fast,omitempty"`
}

func newPayload() SimulationPayload {
	return SimulationPayload{
		Population: run.DefaultPopulationParams(),
		Simulation: run.DefaultSimulationParams(),
	}
}

func (p SimulationPayload) request(config ServerConfig) (app.SimulationRequest, error) {
	kind, err := run.ParseKind(p.Kind)
	if err != nil {
		return app.SimulationRequest{}, err
	}
	if p.Population.File != "" {
		return app.SimulationRequest{}, errors.InvalidInput("population files cannot be referenced over the API")
	}
	if config.MaxPopulation > 0 && p.Population.Size > config.MaxPopulation {
		return app.SimulationRequest{}, core.NewConfigError("population.size",
			fmt.Sprintf("%d exceeds the limit of %d", p.Population.Size, config.MaxPopulation))
	}

	modes := make([]stats.CorrectionMode, 0, len(p.Modes))
	for _, m := range p.Modes {
		mode, err := stats.ParseCorrectionMode(m)
		if err != nil {
			return app.SimulationRequest{}, core.NewConfigError("modes", err.Error())
		}
		modes = append(modes, mode)
	}

	keepTrials := config.KeepTrials
	if p.KeepTrials != nil {
		keepTrials = *p.KeepTrials
	}
	return app.SimulationRequest{
		Kind:       kind,
		Population: p.Population,
		Simulation: p.Simulation,
		Modes:      modes,
		Cutoffs:    p.Cutoffs,
		Precisions: p.Precisions,
		FailFast:   p.FailFast,
		KeepTrials: keepTrials,
	}, nil
}

// handleCreateSimulation runs a simulation synchronously and returns the record
func (s *Server) handleCreateSimulation(c *gin.Context) {
	payload := newPayload()
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.respondError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}

	req, err := payload.request(s.config)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if !s.runs.TryAcquire(1) {
		s.respondError(c, errors.Busy("too many simulations in progress"))
		return
	}
	defer s.runs.Release(1)

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.RunTimeout)
	defer cancel()

	rec, err := s.service.Execute(ctx, req)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rec)
}

// handleListSimulations returns stored manifests, newest first
func (s *Server) handleListSimulations(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.respondError(c, errors.InvalidInput("limit must be a positive integer"))
			return
		}
		limit = n
	}

	manifests, err := s.service.List(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if manifests == nil {
		manifests = []run.Manifest{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": manifests, "count": len(manifests)})
}

// handleGetSimulation returns one run; trials are included with ?trials=true
func (s *Server) handleGetSimulation(c *gin.Context) {
	rec, ok := s.loadRun(c)
	if !ok {
		return
	}
	if c.Query("trials") != "true" {
		rec.Trials = nil
	}
	c.JSON(http.StatusOK, rec)
}

// handleSimulationReport renders the run as markdown or, with ?format=html, HTML
func (s *Server) handleSimulationReport(c *gin.Context) {
	rec, ok := s.loadRun(c)
	if !ok {
		return
	}
	if c.Query("format") == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", report.Page(rec))
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", report.Markdown(rec))
}

func (s *Server) loadRun(c *gin.Context) (*run.Record, bool) {
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		s.respondError(c, errors.InvalidInput("invalid run id"))
		return nil, false
	}
	rec, err := s.service.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	return rec, true
}

func (s *Server) respondError(c *gin.Context, err error) {
	code := errors.CodeFor(err)
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "code": code})
}

// StatusFor maps an error to its HTTP status
func StatusFor(err error) int {
	if simulation.IsCancelled(err) {
		return http.StatusGatewayTimeout
	}
	switch errors.CodeFor(err) {
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeInvalidInput, errors.CodeConfigInvalid, errors.CodeInvalidPrecision,
		errors.CodeInvalidSampleSize, errors.CodeInsufficientPopulation:
		return http.StatusBadRequest
	case errors.CodeFitFailure:
		return http.StatusUnprocessableEntity
	case errors.CodeBusy:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
