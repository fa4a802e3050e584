package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/application"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/session"
)

func newTestEngine() *Engine {
	return New(session.NewStore(application.NewForm), nil, nil, nil, nil)
}

func TestStartApplication(t *testing.T) {
	e := newTestEngine()

	form, progress := e.StartApplication("owner-1")
	require.NotNil(t, form)
	assert.Equal(t, []application.Section{application.SectionPersonal}, progress.Enterable)
	assert.False(t, progress.CanSubmit)

	// Starting again resumes the same session.
	again, _ := e.StartApplication("owner-1")
	assert.Same(t, form, again)
}

func TestProgress(t *testing.T) {
	e := newTestEngine()

	_, ok := e.Progress("owner-1")
	assert.False(t, ok, "Progress must not create a session")

	form, _ := e.StartApplication("owner-1")
	form.Completed[application.SectionPersonal] = true

	progress, ok := e.Progress("owner-1")
	require.True(t, ok)
	assert.Contains(t, progress.Enterable, application.SectionAbout)
}

func TestAbandonApplication(t *testing.T) {
	e := newTestEngine()
	e.StartApplication("owner-1")

	assert.True(t, e.AbandonApplication("owner-1"))
	assert.False(t, e.AbandonApplication("owner-1"))
	_, ok := e.Progress("owner-1")
	assert.False(t, ok)
}
