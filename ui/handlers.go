package ui

import (
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gouq/app"
	"gouq/domain/core"
	"gouq/internal/errors"
)

// handleIndex lists the most recent runs
func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs, err := a.service.List(r.Context(), 50)
	if err != nil {
		a.logger.Error("failed to list runs: %v", err)
		http.Error(w, "Failed to load runs", http.StatusInternalServerError)
		return
	}
	a.renderTemplate(w, "index.html", map[string]interface{}{
		"Runs": runs,
	})
}

// handleRun renders the markdown report of one run
func (a *App) handleRun(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid run ID", http.StatusBadRequest)
		return
	}
	md, err := a.service.Report(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), errors.HTTPStatus(errors.GetCode(err)))
		return
	}
	a.renderTemplate(w, "run.html", map[string]interface{}{
		"ID":     id.String(),
		"Report": template.HTML(app.MarkdownToHTML(md)),
	})
}
