// Package registry lets content store backends plug into dcl-entity and
// dcl-contentd without either binary naming them.
//
// A backend package calls MustRegister from init; importing it (usually
// with a blank import) makes the backend selectable with --backend or from
// a storeconfig file.
package registry

import (
	"flag"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/decentraland/catalyst-commons-go/storage"
)

// Backend describes how to open one kind of content store.
type Backend struct {
	// Name is the value accepted by --backend and by storeconfig "name".
	Name        string
	Description string
	Usage       Usage

	// RegisterFlags binds the backend's --<name>-* flags.
	RegisterFlags func(fs *flag.FlagSet)

	// Open builds the store from the values bound by RegisterFlags. The
	// close function may be nil.
	Open func() (storage.ContentStore, func() error, error)

	// OpenConfig builds the store from a storeconfig options map. Backends
	// that leave it nil can only be selected with flags.
	OpenConfig func(opts map[string]string) (storage.ContentStore, func() error, error)
}

func (b Backend) check() error {
	var missing []string
	if b.RegisterFlags == nil {
		missing = append(missing, "RegisterFlags")
	}
	if b.Open == nil {
		missing = append(missing, "Open")
	}
	if b.Usage == 0 {
		missing = append(missing, "Usage")
	}
	if len(missing) > 0 {
		return fmt.Errorf("registry: backend %q missing %s", b.Name, strings.Join(missing, ", "))
	}
	return nil
}

type table struct {
	mu     sync.RWMutex
	byName map[string]Backend
}

var linked = &table{byName: map[string]Backend{}}

// Register adds b. Names are unique per process.
func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("registry: backend name is required")
	}
	if err := b.check(); err != nil {
		return err
	}
	linked.mu.Lock()
	defer linked.mu.Unlock()
	if _, dup := linked.byName[b.Name]; dup {
		return fmt.Errorf("registry: backend %q already registered", b.Name)
	}
	linked.byName[b.Name] = b
	return nil
}

// MustRegister is Register for init functions; it panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns the backends a program with the given usage may open,
// ordered by name.
func List(usage Usage) []Backend {
	linked.mu.RLock()
	out := make([]Backend, 0, len(linked.byName))
	for _, b := range linked.byName {
		if b.Usage.allows(usage) {
			out = append(out, b)
		}
	}
	linked.mu.RUnlock()
	slices.SortFunc(out, func(a, b Backend) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Names is List reduced to backend names.
func Names(usage Usage) []string {
	var names []string
	for _, b := range List(usage) {
		names = append(names, b.Name)
	}
	return names
}

// RegisterFlags binds the flags of every backend usable by usage on fs.
func RegisterFlags(fs *flag.FlagSet, usage Usage) {
	for _, b := range List(usage) {
		b.RegisterFlags(fs)
	}
}

func (t *table) get(name string, usage Usage) (Backend, error) {
	t.mu.RLock()
	b, ok := t.byName[name]
	t.mu.RUnlock()
	switch {
	case !ok:
		return Backend{}, fmt.Errorf("unknown backend %q (available: %s)", name, strings.Join(Names(usage), ", "))
	case !b.Usage.allows(usage):
		return Backend{}, fmt.Errorf("backend %q not supported in this binary", name)
	}
	return b, nil
}

// Open opens the named backend from its parsed flags.
func Open(name string, usage Usage) (storage.ContentStore, func() error, error) {
	b, err := linked.get(name, usage)
	if err != nil {
		return nil, nil, err
	}
	return b.Open()
}

// OpenWithConfig opens the named backend from a storeconfig options map.
func OpenWithConfig(name string, usage Usage, opts map[string]string) (storage.ContentStore, func() error, error) {
	b, err := linked.get(name, usage)
	if err != nil {
		return nil, nil, err
	}
	if b.OpenConfig == nil {
		return nil, nil, fmt.Errorf("backend %q does not support config files", name)
	}
	if opts == nil {
		opts = map[string]string{}
	}
	return b.OpenConfig(opts)
}
