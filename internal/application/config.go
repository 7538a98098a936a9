package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-tripcheck/internal/commonsense"
	"github.com/ahrav/go-tripcheck/internal/domain"
	"github.com/ahrav/go-tripcheck/internal/expr"
	"github.com/ahrav/go-tripcheck/internal/ports"
)

// Config is the complete configuration of an evaluation run and the
// primary configuration entry point for the system.
type Config struct {
	// Version is the configuration format version, in X.Y.Z form.
	Version string `yaml:"version" validate:"required,semver"`

	// Engine controls how a batch is evaluated.
	Engine EngineConfig `yaml:"engine"`

	// Limits bounds every constraint and preference program run.
	Limits expr.Limits `yaml:"limits"`

	// Commonsense tunes the feasibility checks.
	Commonsense commonsense.Config `yaml:"commonsense"`

	// KnowledgeBase selects the city data backend.
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base"`

	// Schema points at the plan schema document.
	Schema SchemaConfig `yaml:"schema"`
}

// EngineConfig controls batch evaluation.
type EngineConfig struct {
	// Concurrency is the number of queries evaluated at once.
	Concurrency int `yaml:"concurrency" validate:"min=1,max=1024"`

	// Oracle takes hard constraints from the queries' hard_logic_py field.
	// When false they come from TranslationDir, if set.
	Oracle bool `yaml:"oracle"`

	// TranslationDir holds <uid>.json files with translated hard_logic_py
	// programs for non-oracle runs.
	TranslationDir string `yaml:"translation_dir"`

	// QueryPreferences also scores each passing query's own preference
	// programs.
	QueryPreferences bool `yaml:"query_preferences"`
}

// KnowledgeBaseConfig selects the knowledge-base backend.
type KnowledgeBaseConfig struct {
	// Driver is memory, which loads a YAML or JSON dataset, or sqlite.
	Driver string `yaml:"driver" validate:"required,oneof=memory sqlite"`

	// Path is the dataset file or the SQLite database.
	Path string `yaml:"path"`
}

// SchemaConfig locates the schema document.
type SchemaConfig struct {
	// Path is a JSON schema file. Empty uses the embedded schema.
	Path string `yaml:"path"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Version: "1.0.0",
		Engine: EngineConfig{
			Concurrency: runtime.GOMAXPROCS(0),
		},
		Limits:        expr.DefaultLimits(),
		Commonsense:   commonsense.DefaultConfig(),
		KnowledgeBase: KnowledgeBaseConfig{Driver: "memory"},
	}
}

// configValidator carries the custom validators config tags use.
var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for an empty tag or a nil function.
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		panic(err)
	}
	return v
}

// validateSemver validates that a string follows semantic versioning
// format (X.Y.Z where X, Y, Z are non-negative integers).
func validateSemver(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	var major, minor, patch int
	var rest string
	n, _ := fmt.Sscanf(value, "%d.%d.%d%s", &major, &minor, &patch, &rest)
	return n == 3 && major >= 0 && minor >= 0 && patch >= 0
}

// Validate checks struct tags and the relationships between sections.
func (c Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return ports.NewConfigError("config", fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err))
	}
	if c.KnowledgeBase.Driver == "sqlite" && c.KnowledgeBase.Path == "" {
		return ports.NewConfigError("knowledge_base.path",
			fmt.Errorf("%w: the sqlite driver needs a path", domain.ErrInvalidConfiguration))
	}
	return nil
}

// LoadConfig reads a YAML configuration file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, ports.NewConfigError(path, ports.ErrConfigNotFound)
		}
		return Config{}, ports.NewConfigError(path, err)
	}
	return ParseConfig(data)
}

// LoadConfigFromReader reads a YAML configuration from r.
func LoadConfigFromReader(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
// Unknown fields are rejected so that typos are not silently ignored.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, ports.NewConfigError("config",
			fmt.Errorf("%w: YAML decode failed: %v", domain.ErrInvalidConfiguration, err))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
