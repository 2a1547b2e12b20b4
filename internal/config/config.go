// Package config loads the csvdoc CLI and server configuration from YAML,
// layers it over defaults and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	csvdoc "github.com/goliatone/go-csvdoc"
	"github.com/goliatone/go-csvdoc/pkg/rules"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
)

// Config is the top-level configuration.
type Config struct {
	Document    string            `yaml:"document" validate:"required"`
	Store       StoreConfig       `yaml:"store"`
	History     HistoryConfig     `yaml:"history"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Columns     ColumnsConfig     `yaml:"columns"`
	Rules       []RuleConfig      `yaml:"rules" validate:"dive"`
	HTTP        HTTPConfig        `yaml:"http"`
	Log         LogConfig         `yaml:"log"`
	Activity    ActivityConfig    `yaml:"activity"`
	Export      ExportConfig      `yaml:"export"`
	Seed        SeedConfig        `yaml:"seed"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `yaml:"driver" validate:"oneof=memory badger sqlite"`
	// Path is a directory for badger and a database file for sqlite.
	Path string `yaml:"path" validate:"required_unless=Driver memory"`
}

type HistoryConfig struct {
	Depth int `yaml:"depth" validate:"min=1,max=10000"`
}

type PersistenceConfig struct {
	AutosaveDelay   time.Duration `yaml:"autosave_delay" validate:"gte=0"`
	WidthFlushDelay time.Duration `yaml:"width_flush_delay" validate:"gte=0"`
}

// ColumnsConfig controls which columns are constrained or required. A nil
// Constrained list means the built-in annotation columns; an empty list
// designates none.
type ColumnsConfig struct {
	Constrained   []string `yaml:"constrained"`
	Required      []string `yaml:"required"`
	EnumThreshold int      `yaml:"enum_threshold" validate:"gte=0"`
}

type RuleConfig struct {
	Name    string `yaml:"name"`
	Column  string `yaml:"column"`
	Expr    string `yaml:"expr" validate:"required"`
	Message string `yaml:"message"`
	Engine  string `yaml:"engine" validate:"omitempty,oneof=expr cel js"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr" validate:"required"`
	// MaxUploadBytes caps CSV uploads.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// ActivityConfig controls the audit trail. ActorID attributes events to an
// editing session.
type ActivityConfig struct {
	Audit   bool   `yaml:"audit"`
	Channel string `yaml:"channel"`
	ActorID string `yaml:"actor_id"`
}

type ExportConfig struct {
	Prefix string `yaml:"prefix"`
}

// SeedConfig picks the document loaded when the store holds none. By default
// the built-in annotation sample is used.
type SeedConfig struct {
	File  string `yaml:"file"`
	Empty bool   `yaml:"empty"`
}

// Option returns the engine option for the seed document, or nil for the
// built-in sample.
func (s SeedConfig) Option() (csvdoc.Option, error) {
	switch {
	case s.Empty:
		return csvdoc.WithDefaultCSV(""), nil
	case s.File != "":
		data, err := os.ReadFile(s.File)
		if err != nil {
			return nil, fmt.Errorf("config: read seed %s: %w", s.File, err)
		}
		return csvdoc.WithDefaultCSV(string(data)), nil
	default:
		return nil, nil
	}
}

// Defaults returns the configuration used when no file is given.
func Defaults() Config {
	return Config{
		Document: csvdoc.DefaultDocumentName,
		Store:    StoreConfig{Driver: DriverMemory},
		History:  HistoryConfig{Depth: csvdoc.DefaultHistoryDepth},
		Persistence: PersistenceConfig{
			AutosaveDelay:   csvdoc.DefaultAutosaveDelay,
			WidthFlushDelay: csvdoc.DefaultWidthFlushDelay,
		},
		HTTP:   HTTPConfig{Addr: "127.0.0.1:8080", MaxUploadBytes: 32 << 20},
		Log:    LogConfig{Level: "info", Format: "text"},
		Export: ExportConfig{Prefix: csvdoc.DefaultExportPrefix},
	}
}

// Parse decodes YAML into a Config without applying defaults.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	return cfg, nil
}

// Layer names used by LoadLayers.
const (
	LayerOverride = "override"
	LayerFile     = "file"
	LayerDefault  = "default"
)

// Load reads path (optional) and layers overrides, then the file, then the
// defaults. The merged result is validated.
func Load(path string, overrides ...Config) (Config, error) {
	layers, err := LoadLayers(path, overrides...)
	if err != nil {
		return Config{}, err
	}
	cfg := Merge(layers)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadLayers returns the configuration sources strongest first without
// merging them.
func LoadLayers(path string, overrides ...Config) ([]Layer, error) {
	layers := make([]Layer, 0, len(overrides)+2)
	for _, override := range overrides {
		layers = append(layers, Layer{Name: LayerOverride, Config: override})
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		file, err := Parse(data)
		if err != nil {
			return nil, err
		}
		layers = append(layers, Layer{Name: LayerFile, Config: file})
	}
	return append(layers, Layer{Name: LayerDefault, Config: Defaults()}), nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports every failing field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config: validate: %w", err)
	}
	problems := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Errorf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("config: invalid: %w", errors.Join(problems...))
}

// RuleSet converts configured rules.
func (c Config) RuleSet() []rules.Rule {
	out := make([]rules.Rule, 0, len(c.Rules))
	for _, r := range c.Rules {
		out = append(out, rules.Rule{
			Name:    r.Name,
			Column:  r.Column,
			Expr:    r.Expr,
			Message: r.Message,
			Engine:  r.Engine,
		})
	}
	return out
}

// EngineOptions translates the configuration into engine options. Stores,
// logger and activity hooks are wired by the caller.
func (c Config) EngineOptions() []csvdoc.Option {
	opts := []csvdoc.Option{
		csvdoc.WithDocumentName(c.Document),
		csvdoc.WithHistoryDepth(c.History.Depth),
		csvdoc.WithAutosaveDelay(c.Persistence.AutosaveDelay),
		csvdoc.WithWidthFlushDelay(c.Persistence.WidthFlushDelay),
		csvdoc.WithEnumThreshold(c.Columns.EnumThreshold),
		csvdoc.WithRequiredColumns(c.Columns.Required...),
		csvdoc.WithExportPrefix(c.Export.Prefix),
	}
	if c.Columns.Constrained != nil {
		opts = append(opts, csvdoc.WithConstrainedColumns(c.Columns.Constrained...))
	}
	if len(c.Rules) > 0 {
		opts = append(opts, csvdoc.WithRules(c.RuleSet()...))
	}
	return opts
}
