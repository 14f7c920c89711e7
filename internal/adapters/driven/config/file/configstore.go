package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/aegis/internal/adapters/driven/config/values"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// configFile is the file name inside the config directory.
const configFile = "config.toml"

// ConfigStore keeps settings in a TOML file. Keys are addressed with
// dots ("governor.rate_limit") and written back as nested tables, so
// the file stays readable and hand-editable.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]any
}

// NewConfigStore opens config.toml in configDir, creating the directory.
// An empty configDir means ~/.aegis. A missing file is an empty config.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".aegis")
	}
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return nil, err
	}

	s := &ConfigStore{
		filePath: filepath.Join(configDir, configFile),
		data:     make(map[string]any),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get retrieves a configuration value by dotted key.
func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

func (s *ConfigStore) lookup(key string) any {
	val, _ := s.Get(key)
	return val
}

// GetString retrieves a string configuration value.
func (s *ConfigStore) GetString(key string) string { return values.String(s.lookup(key)) }

// GetInt retrieves an integer configuration value.
func (s *ConfigStore) GetInt(key string) int { return values.Int(s.lookup(key)) }

// GetFloat retrieves a floating-point configuration value.
func (s *ConfigStore) GetFloat(key string) float64 { return values.Float(s.lookup(key)) }

// GetDuration retrieves a duration written as "90s" or as whole seconds.
func (s *ConfigStore) GetDuration(key string) time.Duration { return values.Duration(s.lookup(key)) }

// GetBool retrieves a boolean configuration value.
func (s *ConfigStore) GetBool(key string) bool { return values.Bool(s.lookup(key)) }

// GetStringSlice retrieves a string slice configuration value.
func (s *ConfigStore) GetStringSlice(key string) []string {
	return values.StringSlice(s.lookup(key))
}

// Set stores one value and writes the file.
func (s *ConfigStore) Set(key string, value any) error {
	return s.SetAll(map[string]any{key: value})
}

// SetAll stores several values and writes the file once. On a write
// failure the in-memory values are rolled back.
func (s *ConfigStore) SetAll(entries map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	previous := make(map[string]any, len(entries))
	for k, v := range entries {
		if old, ok := s.data[k]; ok {
			previous[k] = old
		}
		s.data[k] = v
	}

	if err := s.save(); err != nil {
		for k := range entries {
			if old, ok := previous[k]; ok {
				s.data[k] = old
			} else {
				delete(s.data, k)
			}
		}
		return err
	}
	return nil
}

// Save writes the current configuration to disk.
func (s *ConfigStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save replaces the file through a temp file and rename so readers
// never see a partial write. Caller must hold the lock.
func (s *ConfigStore) save() error {
	data, err := toml.Marshal(nest(s.data))
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.filePath), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.filePath); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Load rereads the file, replacing everything held in memory.
func (s *ConfigStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		s.data = make(map[string]any)
		return nil
	}
	if err != nil {
		return err
	}

	var loaded map[string]any
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", s.filePath, err)
	}
	s.data = flatten(loaded, "")
	return nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// flatten turns nested tables into dotted keys: {"a": {"b": 1}} becomes {"a.b": 1}.
func flatten(m map[string]any, prefix string) map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		if prefix != "" {
			key = prefix + "." + key
		}
		if table, ok := value.(map[string]any); ok {
			for k, v := range flatten(table, key) {
				out[k] = v
			}
			continue
		}
		out[key] = value
	}
	return out
}

// nest is the inverse of flatten. A key whose path collides with a
// scalar is kept whole and written as a quoted key.
func nest(flat map[string]any) map[string]any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	// Shallow keys first.
	sort.Slice(keys, func(i, j int) bool {
		di, dj := strings.Count(keys[i], "."), strings.Count(keys[j], ".")
		if di != dj {
			return di < dj
		}
		return keys[i] < keys[j]
	})

	root := make(map[string]any)
	for _, key := range keys {
		if !place(root, strings.Split(key, "."), flat[key]) {
			root[key] = flat[key]
		}
	}
	return root
}

func place(table map[string]any, path []string, value any) bool {
	if len(path) == 1 {
		if _, taken := table[path[0]]; taken {
			return false
		}
		table[path[0]] = value
		return true
	}
	child, exists := table[path[0]]
	if !exists {
		child = make(map[string]any)
		table[path[0]] = child
	}
	sub, ok := child.(map[string]any)
	if !ok {
		return false
	}
	return place(sub, path[1:], value)
}
