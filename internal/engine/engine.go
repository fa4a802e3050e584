// Package engine bundles the workflow components behind one entry point
// for the chat command layer. The command handlers themselves live
// outside this module; they fetch state here, mutate it through the
// validator or the link flow, and hand completions to the pipeline or
// the orchestrator.
package engine

import (
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/accountlink"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/application"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/decision"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/pipeline"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/session"
)

type Engine struct {
	Applications *session.Store[*application.Form]
	Validator    *application.Validator
	Links        *accountlink.Flow
	Pipeline     *pipeline.Pipeline
	Decisions    *decision.Orchestrator
}

func New(
	applications *session.Store[*application.Form],
	validator *application.Validator,
	links *accountlink.Flow,
	submission *pipeline.Pipeline,
	decisions *decision.Orchestrator,
) *Engine {
	return &Engine{
		Applications: applications,
		Validator:    validator,
		Links:        links,
		Pipeline:     submission,
		Decisions:    decisions,
	}
}

// StartApplication fetches or creates the owner's form and returns it
// with its current affordance state.
func (e *Engine) StartApplication(ownerID string) (*application.Form, application.Progress) {
	form := e.Applications.GetOrCreate(ownerID)
	return form, application.ProgressOf(form)
}

// Progress derives the affordance state without creating a session.
func (e *Engine) Progress(ownerID string) (application.Progress, bool) {
	form, ok := e.Applications.Get(ownerID)
	if !ok {
		return application.Progress{}, false
	}
	return application.ProgressOf(form), true
}

// AbandonApplication drops an in-flight form.
func (e *Engine) AbandonApplication(ownerID string) bool {
	return e.Applications.Remove(ownerID)
}
