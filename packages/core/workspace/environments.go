package workspace

import (
	"fmt"
	"io"

	"github.com/abdul-hamid-achik/hitpad/packages/core/env"
	"github.com/abdul-hamid-achik/hitpad/packages/core/kv"
)

// Environments returns the loaded environments in store order. Callers must
// not modify them; edit a Clone and pass it to SaveEnvironment.
func (w *Workspace) Environments() []*env.Binding {
	return w.envs
}

// Environment returns the environment with the given id.
func (w *Workspace) Environment(id int64) (*env.Binding, error) {
	for _, b := range w.envs {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, fmt.Errorf("environment %d: %w", id, ErrUnknownEnvironment)
}

// EnvironmentByName returns the environment called name.
func (w *Workspace) EnvironmentByName(name string) (*env.Binding, error) {
	for _, b := range w.envs {
		if b.Name == name {
			return b, nil
		}
	}
	return nil, fmt.Errorf("environment %q: %w", name, ErrUnknownEnvironment)
}

// Active returns the active environment, or nil.
func (w *Workspace) Active() *env.Binding {
	if w.activeID == 0 {
		return nil
	}
	b, err := w.Environment(w.activeID)
	if err != nil {
		return nil
	}
	return b
}

// Activate makes the environment with the given id active for later
// submissions. Requests already in flight keep the binding they were
// composed with.
func (w *Workspace) Activate(id int64) error {
	if _, err := w.Environment(id); err != nil {
		return err
	}
	w.activeID = id
	return nil
}

func (w *Workspace) Deactivate() {
	w.activeID = 0
}

// CreateEnvironment adds an empty environment. On failure the loaded list
// is unchanged.
func (w *Workspace) CreateEnvironment(name string) (*env.Binding, error) {
	if w.store == nil {
		return nil, ErrNoStore
	}
	b, err := w.store.Create(name)
	if err != nil {
		w.logger.Printf("creating environment %q: %v", name, err)
		return nil, err
	}
	w.envs = append(w.envs, b)
	return b, nil
}

// SaveEnvironment persists b over the environment with the same id and
// replaces the loaded copy. On failure the loaded list is unchanged.
func (w *Workspace) SaveEnvironment(b *env.Binding) error {
	if w.store == nil {
		return ErrNoStore
	}
	idx := w.indexOf(b.ID)
	if idx < 0 {
		return fmt.Errorf("environment %d: %w", b.ID, ErrUnknownEnvironment)
	}

	saved := b.Clone()
	if err := w.store.Update(saved); err != nil {
		w.logger.Printf("saving environment %q: %v", b.Name, err)
		return err
	}
	w.envs[idx] = saved
	return nil
}

// DeleteEnvironment removes an environment. Deleting the active environment
// deactivates it.
func (w *Workspace) DeleteEnvironment(id int64) error {
	if w.store == nil {
		return ErrNoStore
	}
	idx := w.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("environment %d: %w", id, ErrUnknownEnvironment)
	}

	if err := w.store.Delete(id); err != nil {
		w.logger.Printf("deleting environment %d: %v", id, err)
		return err
	}
	w.envs = append(w.envs[:idx], w.envs[idx+1:]...)
	if w.activeID == id {
		w.activeID = 0
	}
	return nil
}

// ImportVariables replaces the variables of an environment with the
// KEY=VALUE lines read from r and saves it.
func (w *Workspace) ImportVariables(id int64, r io.Reader) (*env.Binding, error) {
	pairs, err := env.ParseDotEnv(r)
	if err != nil {
		return nil, err
	}
	return w.updateEnvironment(id, func(b *env.Binding) {
		b.Variables = pairs
	})
}

// SetVariables sets each pair on an environment, updating keys that exist
// and appending new ones, and saves it.
func (w *Workspace) SetVariables(id int64, pairs []kv.Pair) (*env.Binding, error) {
	return w.updateEnvironment(id, func(b *env.Binding) {
		for _, p := range pairs {
			b.Set(p.Key, p.Value)
		}
	})
}

func (w *Workspace) updateEnvironment(id int64, edit func(*env.Binding)) (*env.Binding, error) {
	current, err := w.Environment(id)
	if err != nil {
		return nil, err
	}
	b := current.Clone()
	edit(b)
	if err := w.SaveEnvironment(b); err != nil {
		return nil, err
	}
	return w.Environment(id)
}

func (w *Workspace) indexOf(id int64) int {
	for i, b := range w.envs {
		if b.ID == id {
			return i
		}
	}
	return -1
}
