// Package config holds JIDL's persisted configuration: a YAML-shaped
// Config tree mirroring §6's INI sections field-for-field, with the
// Lock/mutate/UnlockAndSave discipline the reference engine uses so a slow
// disk write never holds up a concurrent reader.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Datalogger mirrors the `[datalogger]` INI section.
type Datalogger struct {
	Type     string `yaml:"type"`
	Name     string `yaml:"name"`
	Dir      string `yaml:"dir"`
	Server   string `yaml:"server,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Key      string `yaml:"key,omitempty"`
}

// Archiver mirrors the `[dataarchiver]` INI section. Present is false when
// the section was absent from the source INI, distinguishing "no archiver
// configured" from a (disallowed) zero interval.
type Archiver struct {
	Present  bool   `yaml:"present"`
	Day      string `yaml:"day,omitempty"`
	Interval int    `yaml:"interval,omitempty"`
	Monthly  bool   `yaml:"monthly,omitempty"`
}

// IPC mirrors the IPC-related keys of the `[]` global section.
type IPC struct {
	Port               int    `yaml:"port,omitempty"`
	Keystore           string `yaml:"keystore,omitempty"`
	KeystorePassword   string `yaml:"keystore_password,omitempty"`
	Truststore         string `yaml:"truststore,omitempty"`
	TruststorePassword string `yaml:"truststore_password,omitempty"`
	ControlEnabled     bool   `yaml:"control_enabled,omitempty"`
}

// VariableConfig is one `[var::connection]` or
// `[var::connection<-srcVar::srcConnection]` section.
type VariableConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`

	// Type is empty for writer bindings: the type is inherited from the
	// source reader at bind time (§6).
	Type string `yaml:"type,omitempty"`

	// IsWriter and the SourceVar/SourceConn pair are set for
	// "var::connection<-srcVar::srcConnection" sections.
	IsWriter        bool   `yaml:"is_writer,omitempty"`
	SourceVar       string `yaml:"source_var,omitempty"`
	SourceConn      string `yaml:"source_connection,omitempty"`
}

// ConnectionConfig is one `[connectionName]` section plus the variable
// sections bound to it.
type ConnectionConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"` // s7, modbus-tcp, opcua, json

	Address string `yaml:"address,omitempty"`

	// s7
	Rack int `yaml:"rack,omitempty"`
	Slot int `yaml:"slot,omitempty"`

	// modbus-tcp
	Port     int  `yaml:"port,omitempty"`
	Reversed bool `yaml:"reversed,omitempty"`

	// opcua
	Path      string `yaml:"path,omitempty"`
	Discovery bool   `yaml:"discovery,omitempty"`
	Username  string `yaml:"username,omitempty"`
	Password  string `yaml:"password,omitempty"`
	Salt      string `yaml:"salt,omitempty"`
	IV        string `yaml:"iv,omitempty"`

	// Sample period, already normalized to deciseconds per §6's parsing
	// rule (exactly one of seconds/deciseconds given; seconds*10;
	// deciseconds>9 rounded to the nearest second then back to deciseconds).
	SampleTicks int `yaml:"sample_ticks"`

	Variables []VariableConfig `yaml:"variables,omitempty"`
}

// Config is the full persisted tree: the internal, YAML-shaped mirror of
// one loaded INI file (§6), read-only after load per §5's shared-resource
// policy.
type Config struct {
	Datalogger  Datalogger         `yaml:"datalogger"`
	Archiver    Archiver           `yaml:"archiver"`
	IPC         IPC                `yaml:"ipc"`
	Salt        string             `yaml:"salt,omitempty"`
	IV          string             `yaml:"iv,omitempty"`
	Connections []ConnectionConfig `yaml:"connections,omitempty"`

	dataMu sync.Mutex `yaml:"-"`
}

// Lock acquires the config's data mutex for exclusive access. Use before
// mutating fields, then call UnlockAndSave.
func (c *Config) Lock() { c.dataMu.Lock() }

// Unlock releases the mutex without saving.
func (c *Config) Unlock() { c.dataMu.Unlock() }

// Save acquires the lock, marshals, and writes, for callers that do not
// already hold it.
func (c *Config) Save(path string) error {
	c.dataMu.Lock()
	return c.saveLocked(path)
}

// UnlockAndSave marshals under the held lock, releases it, then performs
// the file write. The caller must already hold the lock via Lock().
func (c *Config) UnlockAndSave(path string) error {
	return c.saveLocked(path)
}

// saveLocked marshals c (lock must be held on entry), releases the lock
// before touching disk, then writes the file.
func (c *Config) saveLocked(path string) error {
	data, err := yaml.Marshal(c)
	c.dataMu.Unlock()
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("config: mkdir %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// LoadYAML reads the internal YAML-shaped mirror back from path (the
// round-trip counterpart of Save, per §6's "YAML-persisted Config mirror
// of the loaded INI").
func LoadYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
