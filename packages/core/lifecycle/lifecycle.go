// Package lifecycle tracks the request/response state of one editor slot.
//
// A slot moves Idle → Loading on submission and Loading → Success or Error
// when the outcome arrives. Submitting again from any phase restarts the
// cycle. Every submission bumps a generation counter; an outcome is applied
// only when it carries the current generation, so a slow earlier response can
// never overwrite a later one.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/abdul-hamid-achik/hitpad/packages/http"
	"github.com/abdul-hamid-achik/hitpad/packages/output"
)

// Phase is the display state of a slot.
type Phase int

const (
	Idle Phase = iota
	Loading
	Success
	Error
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// State is what a front-end shows for a slot. Text holds the rendered
// response in Success and the prefixed error message in Error. Meta is set
// only in Success.
type State struct {
	Phase Phase
	Text  string
	Meta  *output.Metadata
}

// Ticket identifies one submission.
type Ticket struct {
	Slot       int
	Generation uint64
	ID         string
}

// Outcome is the result of running a ticket. Exactly one of Response and Err
// is set.
type Outcome struct {
	Ticket   Ticket
	Response *http.Response
	Err      error
}

// Executor sends a composed request. *http.Client satisfies it.
type Executor interface {
	Execute(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Slot is one request editor with its lifecycle. A slot is owned by a single
// goroutine; only Run may be called elsewhere.
type Slot struct {
	ID         int
	Draft      *http.Draft
	state      State
	generation uint64
}

func NewSlot(id int, draft *http.Draft) *Slot {
	if draft == nil {
		draft = http.NewDraft()
	}
	return &Slot{ID: id, Draft: draft}
}

func (s *Slot) State() State {
	return s.state
}

func (s *Slot) Generation() uint64 {
	return s.generation
}

// Begin enters Loading, clears the previous result and returns the ticket
// the outcome must carry.
func (s *Slot) Begin() Ticket {
	s.generation++
	s.state = State{Phase: Loading}
	return Ticket{Slot: s.ID, Generation: s.generation, ID: uuid.NewString()}
}

// Resolve applies o and reports whether it was current. Outcomes for another
// slot or an older generation leave the state untouched.
func (s *Slot) Resolve(o Outcome) bool {
	if o.Ticket.Slot != s.ID || o.Ticket.Generation != s.generation {
		return false
	}

	switch {
	case o.Err != nil:
		s.state = State{Phase: Error, Text: "Error: " + o.Err.Error()}
	case o.Response != nil:
		meta := output.Summarize(o.Response)
		s.state = State{Phase: Success, Text: output.Render(o.Response), Meta: &meta}
	default:
		s.state = State{Phase: Error, Text: "Error: empty outcome"}
	}
	return true
}

// CopyText returns the text a copy action would place on the clipboard.
// Only Success and Error have copyable text.
func (s *Slot) CopyText() (string, bool) {
	switch s.state.Phase {
	case Success, Error:
		return s.state.Text, true
	case Idle, Loading:
		return "", false
	}
	return "", false
}

// Run executes req for t. It blocks for the duration of the exchange and is
// safe to call from any goroutine.
func Run(ctx context.Context, exec Executor, t Ticket, req *http.Request) Outcome {
	resp, err := exec.Execute(ctx, req)
	if err != nil {
		return Outcome{Ticket: t, Err: err}
	}
	return Outcome{Ticket: t, Response: resp}
}
