package pool

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Settings holds the tunable pool parameters. It is embedded in Config and
// can be loaded from a YAML file.
type Settings struct {
	// Max is the capacity ceiling of the buffer (default 10)
	Max int `yaml:"max" json:"max"`

	// Min is the refill threshold: a Get that leaves the buffer at or below
	// this level triggers a background fill back to Max (default 3)
	Min int `yaml:"min" json:"min"`

	// MaxRetries is how many backoff delays a fill attempt may consume after
	// factory failures before giving up (default 3)
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// RetryDelay is the base step of the backoff sequence (default 1s)
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay"`

	// RetryDelayCap is the ceiling of the backoff sequence (default 30s)
	RetryDelayCap time.Duration `yaml:"retry_delay_cap" json:"retry_delay_cap"`

	// BufferOnStart eagerly fills the buffer to Max during New (default true)
	BufferOnStart bool `yaml:"buffer_on_start" json:"buffer_on_start"`
}

// Config carries the collaborators and parameters of a Pool.
type Config[T comparable] struct {
	Settings

	// Name identifies the pool in logs, metrics and traces
	Name string

	// Factory produces a new resource. Required; may fail.
	Factory func(ctx context.Context) (T, error)

	// Destructor disposes a resource. Optional. Failures are logged and
	// swallowed, they never block pool operation.
	Destructor func(ctx context.Context, resource T) error

	// IsOKSync is an optional synchronous health predicate consulted by Put
	// before the asynchronous one. Meant for cheap, fast checks.
	IsOKSync func(resource T) bool

	// IsOK is an optional asynchronous health predicate consulted by Put
	// after IsOKSync passes.
	IsOK func(ctx context.Context, resource T) bool

	// Logger receives structured pool events. Nil disables logging.
	Logger *zap.Logger

	// TracerProvider enables fill/drain/use spans when set.
	TracerProvider trace.TracerProvider
}

// DefaultSettings returns the stock pool parameters.
func DefaultSettings() Settings {
	return Settings{
		Max:           10,
		Min:           3,
		MaxRetries:    3,
		RetryDelay:    1 * time.Second,
		RetryDelayCap: 30 * time.Second,
		BufferOnStart: true,
	}
}

// DefaultConfig returns a named config with stock parameters. The caller
// still has to supply a Factory.
func DefaultConfig[T comparable](name string) *Config[T] {
	return &Config[T]{
		Name:     name,
		Settings: DefaultSettings(),
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config[T]) Validate() error {
	if c.Factory == nil {
		return fmt.Errorf("factory is required")
	}
	if c.Max < 1 {
		return fmt.Errorf("max must be at least 1, got %d", c.Max)
	}
	if c.Min < 0 || c.Min > c.Max {
		return fmt.Errorf("min must be between 0 and max (%d), got %d", c.Max, c.Min)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", c.MaxRetries)
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("retry_delay must be positive, got %s", c.RetryDelay)
	}
	if c.RetryDelayCap < c.RetryDelay {
		return fmt.Errorf("retry_delay_cap (%s) must not be below retry_delay (%s)", c.RetryDelayCap, c.RetryDelay)
	}
	return nil
}

// LoadSettings reads pool settings from a YAML file. ${VAR_NAME} references
// are substituted from the environment before parsing; fields absent from
// the file keep their defaults.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	content := substituteEnvVars(string(data))

	s := DefaultSettings()
	if err := yaml.Unmarshal([]byte(content), &s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &s, nil
}

// SaveSettings writes pool settings to a YAML file.
func SaveSettings(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil { //nolint:gosec
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
	}
	return content
}
