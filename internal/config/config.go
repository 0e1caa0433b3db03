package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds a tree of configuration values addressed by dot-separated
// paths. Safe for concurrent use.
type Config struct {
	mu   sync.RWMutex
	path string
	data map[string]any
}

// New returns an empty in-memory configuration.
func New() *Config {
	return &Config{data: map[string]any{}}
}

// Load reads a YAML file. A missing file yields an empty configuration
// bound to the path, so first-run setups work without seeding a file.
func Load(path string) (*Config, error) {
	c := New()
	c.path = path

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &c.data); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if c.data == nil {
		c.data = map[string]any{}
	}
	return c, nil
}

// Save writes the current tree back to the bound file.
func (c *Config) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.path == "" {
		return ErrNoPath
	}
	raw, err := yaml.Marshal(c.data)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(c.path, raw, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", c.path, err)
	}
	return nil
}

// Get returns the value at key, or false when any path element is absent.
func (c *Config) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lookup(c.data, strings.Split(key, "."))
}

// GetString returns the string at key, or def.
func (c *Config) GetString(key, def string) string {
	v, ok := c.Get(key)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// GetInt returns the integer at key, or def. Whole floats convert.
func (c *Config) GetInt(key string, def int) int {
	v, ok := c.Get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if n == float64(int(n)) {
			return int(n)
		}
	}
	return def
}

// GetBool returns the bool at key, or def.
func (c *Config) GetBool(key string, def bool) bool {
	v, ok := c.Get(key)
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// GetFloat returns the float at key, or def. Integers convert.
func (c *Config) GetFloat(key string, def float64) float64 {
	v, ok := c.Get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return def
}

// GetDuration returns the duration at key, or def. Strings parse with
// time.ParseDuration; bare integers are taken as seconds.
func (c *Config) GetDuration(key string, def time.Duration) time.Duration {
	v, ok := c.Get(key)
	if !ok {
		return def
	}
	switch d := v.(type) {
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return def
		}
		return parsed
	case int:
		return time.Duration(d) * time.Second
	case int64:
		return time.Duration(d) * time.Second
	}
	return def
}

// Section returns the map at key, or an empty map. The result is a shallow
// copy; mutating it does not change the config.
func (c *Config) Section(key string) map[string]any {
	v, ok := c.Get(key)
	if !ok {
		return map[string]any{}
	}
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		out[k] = val
	}
	return out
}

// Set stores value at key, creating intermediate maps as needed. Fails
// with ErrNotMap when an intermediate element already holds a scalar.
func (c *Config) Set(key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return store(c.data, strings.Split(key, "."), value)
}

// SetDefault stores value at key only when the key is currently absent.
func (c *Config) SetDefault(key string, value any) error {
	if _, ok := c.Get(key); ok {
		return nil
	}
	return c.Set(key, value)
}

// Has reports whether key resolves to a value.
func (c *Config) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

func lookup(m map[string]any, path []string) (any, bool) {
	cur := any(m)
	for _, elem := range path {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = node[elem]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func store(m map[string]any, path []string, value any) error {
	for i, elem := range path[:len(path)-1] {
		next, ok := m[elem]
		if !ok {
			child := map[string]any{}
			m[elem] = child
			m = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotMap, strings.Join(path[:i+1], "."))
		}
		m = child
	}
	m[path[len(path)-1]] = value
	return nil
}
