// Package storeconfig opens one or more content store backends from a JSON
// or YAML file.
package storeconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/decentraland/catalyst-commons-go/storage"
	"github.com/decentraland/catalyst-commons-go/storage/registry"
)

// Config describes how to open content store backends via registry.
// Callers still link the desired backends via blank imports.
//
// WritePolicy values:
//   - "first" (default): write only to the first backend; reads fall back in order
//   - "all": write to every backend (see storage.Replicating)
//
// Example (YAML):
//
//	write_policy: all
//	backends:
//	  - name: localfs
//	    config: {dir: /var/lib/dcl/content}
//	  - name: ipfs
//	    config: {ipfs-path: /var/lib/ipfs, pin: "true"}
type Config struct {
	WritePolicy string          `json:"write_policy,omitempty" yaml:"write_policy,omitempty"`
	Backends    []BackendConfig `json:"backends" yaml:"backends"`
}

type BackendConfig struct {
	// Name is the registry backend name (e.g. "grpc", "localfs", "ipfs").
	Name string `json:"name" yaml:"name"`
	// ID is an optional stable alias used in replication errors. Defaults to Name.
	ID     string            `json:"id,omitempty" yaml:"id,omitempty"`
	Config map[string]string `json:"config,omitempty" yaml:"config,omitempty"`
}

func (b BackendConfig) id() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Name
}

// LoadFile reads a config file. Files ending in .yaml or .yml are parsed as
// YAML; anything else as JSON.
func LoadFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("storeconfig: empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(b)
	default:
		return ParseJSON(b)
	}
}

// ParseJSON decodes and validates a JSON config. Unknown fields are rejected.
func ParseJSON(b []byte) (Config, error) {
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("storeconfig: %w", err)
	}
	return cfg, cfg.Validate()
}

// ParseYAML decodes and validates a YAML config. Unknown fields are rejected.
func ParseYAML(b []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("storeconfig: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if len(c.Backends) == 0 {
		return errors.New("storeconfig: at least one backend is required")
	}
	seen := make(map[string]struct{}, len(c.Backends))
	for _, b := range c.Backends {
		if b.Name == "" {
			return errors.New("storeconfig: backend name is required")
		}
		if _, ok := seen[b.id()]; ok {
			return fmt.Errorf("storeconfig: duplicate backend id %q", b.id())
		}
		seen[b.id()] = struct{}{}
	}
	switch c.WritePolicy {
	case "", "first", "all":
		return nil
	default:
		return fmt.Errorf("storeconfig: invalid write_policy %q", c.WritePolicy)
	}
}

// Order returns the backends with preferred (a name or id) moved first.
func (c Config) Order(preferred string) ([]BackendConfig, error) {
	ordered := append([]BackendConfig(nil), c.Backends...)
	if preferred == "" {
		return ordered, nil
	}
	idx := -1
	for i := range ordered {
		if ordered[i].Name == preferred || ordered[i].ID == preferred {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("storeconfig: preferred backend %q not found in config", preferred)
	}
	if idx != 0 {
		b := ordered[idx]
		copy(ordered[1:idx+1], ordered[0:idx])
		ordered[0] = b
	}
	return ordered, nil
}

// Open opens a content store per config.
//
// If preferred is non-empty, that backend is moved first (and thus used for
// writes when WritePolicy is "first").
func (c Config) Open(usage registry.Usage, preferred string) (storage.ContentStore, func() error, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	ordered, err := c.Order(preferred)
	if err != nil {
		return nil, nil, err
	}

	named := make([]storage.NamedStore, 0, len(ordered))
	closers := make([]func() error, 0, len(ordered))
	closeAll := func() error {
		var firstErr error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	for _, b := range ordered {
		s, closeFn, err := registry.OpenWithConfig(b.Name, usage, b.Config)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("storeconfig: backend %q: %w", b.id(), err)
		}
		named = append(named, storage.NamedStore{Name: b.id(), Store: s})
		if closeFn != nil {
			closers = append(closers, closeFn)
		}
	}

	if len(named) == 1 {
		return named[0].Store, closeAll, nil
	}
	if c.WritePolicy == "all" {
		return storage.Replicating{Backends: named}, closeAll, nil
	}
	stores := make([]storage.ContentStore, 0, len(named))
	for _, n := range named {
		stores = append(stores, n.Store)
	}
	return storage.Fallback{Stores: stores}, closeAll, nil
}
