// Package flow implements the guided-flow mode: a per-session sequential
// walk through all personas, gated on an explicit complete-step action.
package flow

import (
	"fmt"
	"sync"

	"github.com/insightloop/insightloop-backend/internal/persona"
)

type Step struct {
	PersonaID   int    `json:"personaId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Progress struct {
	Started     bool   `json:"started"`
	Steps       []Step `json:"steps"`
	CurrentStep int    `json:"currentStep"`
	Completed   []int  `json:"completed"`
	Percent     int    `json:"percent"`
	Done        bool   `json:"done"`
}

type state struct {
	started   bool
	current   int
	completed []int
}

// Tracker holds guided-flow progress per session for the process lifetime.
type Tracker struct {
	mu        sync.Mutex
	steps     []Step
	bySession map[string]*state
}

func NewTracker(registry *persona.Registry) *Tracker {
	personas := registry.List()
	steps := make([]Step, 0, len(personas))
	for _, p := range personas {
		steps = append(steps, Step{PersonaID: p.ID, Name: p.Name, Description: p.Description})
	}
	return &Tracker{steps: steps, bySession: make(map[string]*state)}
}

func (t *Tracker) Start(sessionID string) Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.bySession[sessionID]
	if !ok {
		st = &state{}
		t.bySession[sessionID] = st
	}
	st.started = true
	return t.progressLocked(st)
}

func (t *Tracker) Progress(sessionID string) Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.bySession[sessionID]
	if !ok {
		st = &state{}
	}
	return t.progressLocked(st)
}

// CompleteCurrent marks the current step done and advances. Progression is
// gated on this call; chatting alone never advances the flow.
func (t *Tracker) CompleteCurrent(sessionID string) (Progress, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.bySession[sessionID]
	if !ok || !st.started {
		return Progress{}, fmt.Errorf("guided flow not started")
	}
	if len(st.completed) >= len(t.steps) {
		return Progress{}, fmt.Errorf("guided flow already complete")
	}
	st.completed = append(st.completed, st.current)
	if st.current < len(t.steps)-1 {
		st.current++
	}
	return t.progressLocked(st), nil
}

func (t *Tracker) Restart(sessionID string) Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := &state{}
	t.bySession[sessionID] = st
	return t.progressLocked(st)
}

func (t *Tracker) progressLocked(st *state) Progress {
	percent := 0
	if len(t.steps) > 0 {
		percent = len(st.completed) * 100 / len(t.steps)
	}
	return Progress{
		Started:     st.started,
		Steps:       append([]Step(nil), t.steps...),
		CurrentStep: st.current,
		Completed:   append([]int(nil), st.completed...),
		Percent:     percent,
		Done:        len(t.steps) > 0 && len(st.completed) == len(t.steps),
	}
}
