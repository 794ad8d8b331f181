// Package actions exposes gateway capabilities as named, uniformly-invoked
// actions. Each capability module returns its action list; the composition
// root registers them explicitly into a single registry. On a name conflict
// the last registration wins — that is the deterministic resolution rule,
// so registration order is significant and owned by the composition root.
package actions

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	xerrors "github.com/Ai-Layer-Labs/eliza-starter-fork/internal/errors"
	"github.com/Ai-Layer-Labs/eliza-starter-fork/pkg/logger"
)

// Handler executes one action with loosely-typed arguments, the shape the
// conversational layer upstream supplies.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Action is a named gateway capability.
type Action struct {
	Name        string
	Description string
	Handler     Handler
}

// Registry holds the merged action set.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
	log     *slog.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]Action),
		log:     logger.Named("actions"),
	}
}

// Register merges a module's actions into the registry. Conflicting names
// are overwritten by the incoming action (last registered wins).
func (r *Registry) Register(actions ...Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, action := range actions {
		if action.Name == "" {
			return xerrors.New(xerrors.CodeInvalidArgument, "action name cannot be empty")
		}
		if action.Handler == nil {
			return xerrors.New(xerrors.CodeInvalidArgument,
				"action "+action.Name+" has no handler")
		}
		if _, exists := r.actions[action.Name]; exists {
			r.log.Warn("action overridden by later registration",
				slog.String("action", action.Name))
		}
		r.actions[action.Name] = action
	}
	return nil
}

// Get returns the action by name.
func (r *Registry) Get(name string) (Action, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	action, ok := r.actions[name]
	return action, ok
}

// List returns all actions sorted by name.
func (r *Registry) List() []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Action, 0, len(r.actions))
	for _, action := range r.actions {
		out = append(out, action)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs the named action.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	action, ok := r.Get(name)
	if !ok {
		return nil, xerrors.New(xerrors.CodeNotFound, "unknown action "+name)
	}
	return action.Handler(ctx, args)
}
