package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the daemon's configuration file. Zero values fall back to the
// defaults below, so a minimal file only names what it overrides.
type File struct {
	// APIAddr is the listen address for the lifecycle API.
	APIAddr string `yaml:"api_addr"`

	// DataDir holds the boltdb state database and local object storage.
	DataDir string `yaml:"data_dir"`

	// PostgresDSN connects the registry. Empty selects the in-memory
	// registry, which is only suitable for development.
	PostgresDSN string `yaml:"postgres_dsn"`

	// Bucket and MountPath describe the backing object storage mount
	// presented to sandboxes.
	Bucket    string `yaml:"bucket"`
	MountPath string `yaml:"mount_path"`

	// SecretsPassword derives the key that seals tenant secrets. Empty
	// falls back to a platform-derived key.
	SecretsPassword string `yaml:"secrets_password"`

	// SandboxImage is the container image booted for every tenant.
	// Empty keeps the runtime's default image.
	SandboxImage string `yaml:"sandbox_image"`

	// SandboxDefaults are baseline environment variables injected below
	// every tenant's own configuration.
	SandboxDefaults map[string]string `yaml:"sandbox_defaults"`

	Log  LogFile  `yaml:"log"`
	Sync SyncFile `yaml:"sync"`
}

// LogFile configures logging output.
type LogFile struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// SyncFile overrides the sync loop thresholds. Zero durations keep the
// production defaults.
type SyncFile struct {
	FirstDelay        Duration `yaml:"first_delay"`
	Interval          Duration `yaml:"interval"`
	BackoffBase       Duration `yaml:"backoff_base"`
	BackoffCap        Duration `yaml:"backoff_cap"`
	SelfHealThreshold int      `yaml:"self_heal_threshold"`
	LockStaleAfter    Duration `yaml:"lock_stale_after"`
}

// Duration is a time.Duration that unmarshals from yaml strings like "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts back to time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DefaultFile returns the development defaults.
func DefaultFile() File {
	return File{
		APIAddr:   ":8420",
		DataDir:   "/var/lib/burrow",
		Bucket:    "burrow-tenant-data",
		MountPath: "/data",
		Log:       LogFile{Level: "info", JSON: true},
	}
}

// LoadFile reads and parses a config file, layering it over the defaults.
// A missing path returns the defaults unchanged.
func LoadFile(path string) (File, error) {
	cfg := DefaultFile()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}
