// Package workspace holds one interactive session: the request slots, the
// loaded environments and the active one, and the collaborators that persist
// environments and receive copied text.
//
// A Workspace is owned by a single goroutine. Only Task.Run is meant to run
// elsewhere; its Outcome comes back through Deliver.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/abdul-hamid-achik/hitpad/packages/core/env"
	"github.com/abdul-hamid-achik/hitpad/packages/core/lifecycle"
	"github.com/abdul-hamid-achik/hitpad/packages/http"
)

var (
	ErrLastSlot           = errors.New("cannot close the last request")
	ErrUnknownSlot        = errors.New("no such request")
	ErrUnknownEnvironment = errors.New("no such environment")
	ErrNoStore            = errors.New("no environment store configured")
	ErrNoClipboard        = errors.New("no clipboard configured")
)

// Store persists environments.
type Store interface {
	Create(name string) (*env.Binding, error)
	List() ([]*env.Binding, error)
	Update(b *env.Binding) error
	Delete(id int64) error
}

// Clipboard receives copied text.
type Clipboard interface {
	SetText(text string) error
}

type Workspace struct {
	exec      lifecycle.Executor
	store     Store
	clipboard Clipboard
	logger    *log.Logger

	envs     []*env.Binding
	activeID int64

	slots    []*lifecycle.Slot
	nextSlot int
}

type Option func(*Workspace)

func WithStore(s Store) Option {
	return func(w *Workspace) {
		w.store = s
	}
}

func WithClipboard(c Clipboard) Option {
	return func(w *Workspace) {
		w.clipboard = c
	}
}

// WithLogger sets where persistence failures and dropped outcomes are
// logged. Nil keeps logging disabled.
func WithLogger(l *log.Logger) Option {
	return func(w *Workspace) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a workspace with one empty slot. When a store is configured
// its environments are loaded.
func New(exec lifecycle.Executor, opts ...Option) (*Workspace, error) {
	w := &Workspace{
		exec:   exec,
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.store != nil {
		envs, err := w.store.List()
		if err != nil {
			return nil, fmt.Errorf("loading environments: %w", err)
		}
		w.envs = envs
	}

	w.AddSlot()
	return w, nil
}

// Slots returns the open slots in tab order.
func (w *Workspace) Slots() []*lifecycle.Slot {
	return w.slots
}

func (w *Workspace) Slot(i int) (*lifecycle.Slot, error) {
	if i < 0 || i >= len(w.slots) {
		return nil, fmt.Errorf("request %d: %w", i, ErrUnknownSlot)
	}
	return w.slots[i], nil
}

// AddSlot appends a slot and returns its index. When the active environment
// has a base URL the new draft starts with it.
func (w *Workspace) AddSlot() int {
	w.nextSlot++
	draft := http.NewDraft()
	if u, ok := w.Active().BaseURL(); ok {
		draft.URL = u
	}
	w.slots = append(w.slots, lifecycle.NewSlot(w.nextSlot, draft))
	return len(w.slots) - 1
}

// CloseSlot removes the slot at i. The last slot cannot be closed. A pending
// outcome for a closed slot is dropped by Deliver.
func (w *Workspace) CloseSlot(i int) error {
	if _, err := w.Slot(i); err != nil {
		return err
	}
	if len(w.slots) == 1 {
		return ErrLastSlot
	}
	w.slots = append(w.slots[:i], w.slots[i+1:]...)
	return nil
}

func (w *Workspace) slotByID(id int) *lifecycle.Slot {
	for _, s := range w.slots {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// Task is one submitted request, ready to run on any goroutine.
type Task struct {
	Ticket  lifecycle.Ticket
	Request *http.Request
	exec    lifecycle.Executor
}

// Run blocks until the exchange completes.
func (t Task) Run(ctx context.Context) lifecycle.Outcome {
	return lifecycle.Run(ctx, t.exec, t.Ticket, t.Request)
}

// Submit composes the draft of slot i with the active environment and moves
// the slot to Loading. The returned task must be run and its outcome passed
// to Deliver.
func (w *Workspace) Submit(i int) (Task, error) {
	slot, err := w.Slot(i)
	if err != nil {
		return Task{}, err
	}

	active := w.Active()
	req := http.Compose(slot.Draft, active)
	if active != nil {
		for _, name := range active.Resolver().GetUnresolvedVariables(req.URL) {
			w.logger.Printf("request %d: unresolved variable %q in URL", slot.ID, name)
		}
	}

	ticket := slot.Begin()
	return Task{Ticket: ticket, Request: req, exec: w.exec}, nil
}

// Deliver applies an outcome to its slot and reports whether it was current.
func (w *Workspace) Deliver(o lifecycle.Outcome) bool {
	slot := w.slotByID(o.Ticket.Slot)
	if slot == nil {
		w.logger.Printf("[%s] dropping outcome for closed request %d", o.Ticket.ID, o.Ticket.Slot)
		return false
	}
	if !slot.Resolve(o) {
		w.logger.Printf("[%s] dropping stale outcome for request %d (generation %d, current %d)",
			o.Ticket.ID, o.Ticket.Slot, o.Ticket.Generation, slot.Generation())
		return false
	}
	return true
}

// Send submits slot i, runs it on the calling goroutine and delivers the
// outcome.
func (w *Workspace) Send(ctx context.Context, i int) (lifecycle.Outcome, error) {
	task, err := w.Submit(i)
	if err != nil {
		return lifecycle.Outcome{}, err
	}
	o := task.Run(ctx)
	w.Deliver(o)
	return o, nil
}

// Copy writes the result text of slot i to the clipboard. It reports false
// without error when the slot has nothing to copy.
func (w *Workspace) Copy(i int) (bool, error) {
	slot, err := w.Slot(i)
	if err != nil {
		return false, err
	}
	text, ok := slot.CopyText()
	if !ok {
		return false, nil
	}
	if w.clipboard == nil {
		return false, ErrNoClipboard
	}
	if err := w.clipboard.SetText(text); err != nil {
		return false, fmt.Errorf("copy to clipboard: %w", err)
	}
	return true, nil
}
