// Package config loads exporter settings from a TOML file, a .env file and
// SCENEFLAT_* environment variables, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/taigrr/sceneflat/pkg/scene"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCENEFLAT_"

// Config is the complete exporter configuration.
type Config struct {
	Export Export `toml:"export"`
	Log    Log    `toml:"log"`
}

// Export controls traversal and the output format.
type Export struct {
	// OriginName is the name of the point object the selection is
	// recentered on.
	OriginName string `toml:"origin_name" validate:"required"`
	// MaxLineWidth caps the length of triangle records.
	MaxLineWidth int `toml:"max_line_width" validate:"gte=40"`
	// IndentWidth is the number of spaces per hierarchy level.
	IndentWidth int `toml:"indent_width" validate:"gte=0,lte=8"`
	// DecimalComments appends a readable comment to transform rows.
	DecimalComments bool `toml:"decimal_comments"`
	// AcceptedKinds lists the leaf kinds exported as parts.
	AcceptedKinds []string `toml:"accepted_kinds" validate:"min=1,dive,objectkind"`
	// MaxDepth bounds instance nesting.
	MaxDepth int `toml:"max_depth" validate:"gte=1,lte=4096"`
	// MeshBudget is the triangle count above which a part is reported;
	// zero disables the check.
	MeshBudget int `toml:"mesh_budget" validate:"gte=0"`
}

// Log controls the zap logger.
type Log struct {
	Development bool `toml:"development"`
	Debug       bool `toml:"debug"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("objectkind", validateObjectKind)
}

func validateObjectKind(fl validator.FieldLevel) bool {
	_, err := scene.ParseKind(fl.Field().String())
	return err == nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Export: Export{
			OriginName:      "Origin",
			MaxLineWidth:    100,
			IndentWidth:     2,
			DecimalComments: true,
			AcceptedKinds:   []string{"polysurface", "mesh"},
			MaxDepth:        64,
		},
	}
}

// Load builds a configuration from the defaults, the optional TOML file at
// path and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}

	return cfg, Validate(cfg)
}

// LoadDotEnv loads variables from a .env file into the process environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyEnv overrides cfg with SCENEFLAT_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if v, ok := lookup("ORIGIN_NAME"); ok {
		cfg.Export.OriginName = v
	}
	if v, ok := lookup("ACCEPTED_KINDS"); ok {
		cfg.Export.AcceptedKinds = splitList(v)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"MAX_LINE_WIDTH", &cfg.Export.MaxLineWidth},
		{"INDENT_WIDTH", &cfg.Export.IndentWidth},
		{"MAX_DEPTH", &cfg.Export.MaxDepth},
		{"MESH_BUDGET", &cfg.Export.MeshBudget},
	}
	for _, it := range ints {
		v, ok := lookup(it.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, it.key, err)
		}
		*it.dst = n
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"DECIMAL_COMMENTS", &cfg.Export.DecimalComments},
		{"DEBUG", &cfg.Log.Debug},
		{"DEVELOPMENT", &cfg.Log.Development},
	}
	for _, it := range bools {
		v, ok := lookup(it.key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, it.key, err)
		}
		*it.dst = b
	}

	return nil
}

// Validate checks cfg against its struct constraints.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Kinds returns the accepted leaf kinds as a set.
func (e Export) Kinds() (scene.Kind, error) {
	return scene.ParseKinds(e.AcceptedKinds)
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	return strings.TrimSpace(v), ok
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
