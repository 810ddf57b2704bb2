package keymap

import "slices"

// Resolver maps pressed keys to actions and actions back to the labels shown
// in help.
type Resolver struct {
	actions map[string]Action
	labels  map[Action][]string
}

// NewResolver indexes bindings. A key bound twice keeps its last action.
func NewResolver(bindings []Binding) *Resolver {
	r := &Resolver{
		actions: make(map[string]Action),
		labels:  make(map[Action][]string),
	}
	for _, b := range bindings {
		for _, key := range b.Keys {
			r.actions[key] = b.Action
			if l := Label(key); !slices.Contains(r.labels[b.Action], l) {
				r.labels[b.Action] = append(r.labels[b.Action], l)
			}
		}
	}
	return r
}

// Resolve returns the action for a key as bubbletea names it, or "".
func (r *Resolver) Resolve(key string) Action {
	return r.actions[key]
}

// KeysFor returns the help labels of the keys bound to action, in binding
// order.
func (r *Resolver) KeysFor(action Action) []string {
	return r.labels[action]
}
