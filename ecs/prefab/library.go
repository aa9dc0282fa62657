// Package prefab loads named entity templates from YAML and resolves them for ecs pools
//
// A prefab file holds a list of templates:
//
//	- name: creature
//	  components:
//	    Health: {current: 10, max: 10}
//	- name: goblin
//	  parent: creature
//	  components:
//	    Health: {current: 30, max: 30}
//	    Location: {position: {x: 1, y: 2}}
//
// Component keys are names registered in an ecs.ComponentRegistry. A child inherits every component of its
// parent chain and overrides components of the same kind
package prefab

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/plus3/entitypool/ecs"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// definition is one template as read from YAML, before inheritance is applied
type definition struct {
	Name       string               `yaml:"name"`
	Parent     string               `yaml:"parent"`
	Components map[string]yaml.Node `yaml:"components"`
}

// Library holds prefab templates and implements ecs.PrefabResolver
type Library struct {
	mu       sync.RWMutex
	registry *ecs.ComponentRegistry
	log      *zap.Logger
	defs     map[string]*ecs.Prefab
	resolved map[string]*ecs.Prefab
}

// NewLibrary creates an empty library decoding components through registry. A nil logger disables logging
func NewLibrary(registry *ecs.ComponentRegistry, log *zap.Logger) *Library {
	if log == nil {
		log = zap.NewNop()
	}
	return &Library{
		registry: registry,
		log:      log,
		defs:     make(map[string]*ecs.Prefab),
		resolved: make(map[string]*ecs.Prefab),
	}
}

// Load parses YAML prefab definitions and registers them
func (l *Library) Load(data []byte) (int, error) {
	var defs []definition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return 0, fmt.Errorf("parse prefabs: %w", err)
	}

	prefabs := make([]*ecs.Prefab, 0, len(defs))
	for i := range defs {
		p, err := l.decode(&defs[i])
		if err != nil {
			return 0, err
		}
		prefabs = append(prefabs, p)
	}
	for _, p := range prefabs {
		l.Register(p)
	}
	return len(prefabs), nil
}

// LoadFile loads the prefab definitions in path
func (l *Library) LoadFile(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read prefab file %s: %w", path, err)
	}
	n, err := l.Load(raw)
	if err != nil {
		return 0, fmt.Errorf("load prefab file %s: %w", path, err)
	}
	l.log.Debug("loaded prefab file", zap.String("file", path), zap.Int("prefabs", n))
	return n, nil
}

// LoadDir loads every .yaml and .yml file in dir, in name order
func (l *Library) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read prefab dir %s: %w", dir, err)
	}

	total := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		n, err := l.LoadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (l *Library) decode(def *definition) (*ecs.Prefab, error) {
	if def.Name == "" {
		return nil, errors.New("prefab without a name")
	}

	names := make([]string, 0, len(def.Components))
	for name := range def.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	p := &ecs.Prefab{
		Name:       def.Name,
		Parent:     def.Parent,
		Components: make([]any, 0, len(names)),
	}
	for _, name := range names {
		c, ok := l.registry.New(name)
		if !ok {
			return nil, fmt.Errorf("prefab %q: unknown component %q", def.Name, name)
		}
		node := def.Components[name]
		if err := node.Decode(c); err != nil {
			return nil, fmt.Errorf("prefab %q: decode component %q: %w", def.Name, name, err)
		}
		p.Components = append(p.Components, c)
	}
	return p, nil
}

// Register adds or replaces a prefab. Resolved prefabs are recomputed on next use
func (l *Library) Register(p *ecs.Prefab) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.defs[p.Name] = p
	clear(l.resolved)
}

// Names returns the names of all registered prefabs, sorted
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.defs))
	for name := range l.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolvePrefab returns the named prefab with its parent chain flattened into it
// Unknown names and broken inheritance chains are logged and reported as absent
func (l *Library) ResolvePrefab(name string) (*ecs.Prefab, bool) {
	l.mu.RLock()
	p, ok := l.resolved[name]
	l.mu.RUnlock()
	if ok {
		return p, true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p, err := l.flattenLocked(name, make(map[string]bool))
	if err != nil {
		l.log.Warn("unable to resolve prefab", zap.String("prefab", name), zap.Error(err))
		return nil, false
	}
	l.resolved[name] = p
	return p, true
}

// ErrUnknownPrefab is wrapped by resolution errors for names that are not registered
var ErrUnknownPrefab = errors.New("unknown prefab")

func (l *Library) flattenLocked(name string, visiting map[string]bool) (*ecs.Prefab, error) {
	if p, ok := l.resolved[name]; ok {
		return p, nil
	}
	def, ok := l.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownPrefab, name)
	}
	if def.Parent == "" {
		return def, nil
	}
	if visiting[name] {
		return nil, fmt.Errorf("prefab inheritance cycle at %q", name)
	}
	visiting[name] = true

	parent, err := l.flattenLocked(def.Parent, visiting)
	if err != nil {
		return nil, fmt.Errorf("parent of %q: %w", name, err)
	}

	own := make(map[reflect.Type]bool, len(def.Components))
	for _, c := range def.Components {
		own[componentKind(c)] = true
	}

	flat := &ecs.Prefab{
		Name:       def.Name,
		Parent:     def.Parent,
		Components: make([]any, 0, len(def.Components)+len(parent.Components)),
	}
	for _, c := range parent.Components {
		if !own[componentKind(c)] {
			flat.Components = append(flat.Components, c)
		}
	}
	flat.Components = append(flat.Components, def.Components...)

	l.resolved[name] = flat
	return flat, nil
}

func componentKind(c any) reflect.Type {
	t := reflect.TypeOf(c)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
