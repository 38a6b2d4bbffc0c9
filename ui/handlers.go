package ui

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"linkbias/domain/core"
	"linkbias/domain/run"
	"linkbias/internal/export"
	"linkbias/internal/report"
)

type indexPage struct {
	Runs []run.Manifest
}

type runPage struct {
	Manifest  run.Manifest
	Report    template.HTML
	HasTrials bool
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs, err := a.service.List(r.Context(), 100)
	if err != nil {
		a.logger.Error("list runs: %v", err)
		http.Error(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	a.renderTemplate(w, "index.html", indexPage{Runs: runs})
}

func (a *App) handleRun(w http.ResponseWriter, r *http.Request) {
	rec, ok := a.loadRun(w, r)
	if !ok {
		return
	}
	a.renderTemplate(w, "run.html", runPage{
		Manifest:  rec.Manifest,
		Report:    template.HTML(report.HTML(report.Markdown(rec))),
		HasTrials: len(rec.Trials) > 0,
	})
}

func (a *App) handleSummaryCSV(w http.ResponseWriter, r *http.Request) {
	rec, ok := a.loadRun(w, r)
	if !ok {
		return
	}
	setCSVHeaders(w, rec.Manifest.RunID, "summary")
	if err := export.WriteSummariesCSV(w, rec.Summaries); err != nil {
		a.logger.Error("write summary csv: %v", err)
	}
}

func (a *App) handleTrialsCSV(w http.ResponseWriter, r *http.Request) {
	rec, ok := a.loadRun(w, r)
	if !ok {
		return
	}
	if len(rec.Trials) == 0 {
		http.Error(w, "run was stored without trials", http.StatusNotFound)
		return
	}
	setCSVHeaders(w, rec.Manifest.RunID, "trials")
	if err := export.WriteTrialsCSV(w, rec.Trials); err != nil {
		a.logger.Error("write trials csv: %v", err)
	}
}

func setCSVHeaders(w http.ResponseWriter, id core.RunID, name string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id.String()+"_"+name+".csv"))
}

func (a *App) loadRun(w http.ResponseWriter, r *http.Request) (*run.Record, bool) {
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid run id", http.StatusBadRequest)
		return nil, false
	}
	rec, err := a.service.Get(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		a.logger.Error("load run %s: %v", id, err)
		http.Error(w, "failed to load run", http.StatusInternalServerError)
		return nil, false
	}
	return rec, true
}
