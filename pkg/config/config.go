package config

import (
	_ "embed"
	"os"
	"reflect"
	"strings"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/arthur-debert/metaini/pkg/errors"
	"github.com/arthur-debert/metaini/pkg/expansion"
	"github.com/arthur-debert/metaini/pkg/logging"
	"github.com/arthur-debert/metaini/pkg/writer"
)

// Config file lookup.
const (
	EnvPrefix      = "METAINI_"
	LocalFile      = ".metaini.toml"
	UserConfigFile = "metaini/config.toml"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New(errors.ErrNotImplemented, "raw bytes provider only supports ReadBytes")
}

// Config is the resolved metaini configuration.
type Config struct {
	Parser    Parser    `koanf:"parser"`
	Expansion Expansion `koanf:"expansion"`
	Output    Output    `koanf:"output"`

	// Source is the config file that was loaded, empty when none was.
	Source string `koanf:"-"`
}

// Parser holds the syntax settings.
type Parser struct {
	Assignment   string `koanf:"assignment"`
	CommentChars string `koanf:"comment_chars"`
}

// Expansion holds the engine limits.
type Expansion struct {
	MaxConfigurations   int `koanf:"max_configurations"`
	MaxResolutionPasses int `koanf:"max_resolution_passes"`
}

// Output holds the defaults for written files.
type Output struct {
	Format writer.Format `koanf:"format"`
	Dir    string        `koanf:"dir"`
}

// LoadOptions select the config file and the flag overrides.
type LoadOptions struct {
	// Path is an explicit config file; it must exist.
	Path string
	// Overrides are dotted keys set from command-line flags.
	Overrides map[string]interface{}
}

// Load merges, in increasing priority, the embedded defaults, the config
// file, METAINI_* environment variables and the overrides.
func Load(opts LoadOptions) (*Config, error) {
	logger := logging.GetLogger("config")
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load defaults")
	}

	source, err := findConfigFile(opts.Path)
	if err != nil {
		return nil, err
	}
	if source != "" {
		if err := k.Load(file.Provider(source), toml.Parser()); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to load config from %s", source).
				WithDetail("file", source)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load env vars")
	}

	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load flag overrides")
		}
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				stringToFormatHookFunc(),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to unmarshal configuration")
	}
	cfg.Source = source

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger.Debug().
		Str("source", source).
		Str("format", string(cfg.Output.Format)).
		Int("maxConfigurations", cfg.Expansion.MaxConfigurations).
		Msg("Configuration loaded")
	return &cfg, nil
}

// findConfigFile returns the explicit path, ./.metaini.toml or the user
// config file, in that order, or "" when none exists.
func findConfigFile(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", errors.Wrapf(err, errors.ErrConfigLoad, "config file %s not found", path).
				WithDetail("file", path)
		}
		return path, nil
	}
	if _, err := os.Stat(LocalFile); err == nil {
		return LocalFile, nil
	}
	if found, err := xdg.SearchConfigFile(UserConfigFile); err == nil {
		return found, nil
	}
	return "", nil
}

// envKey maps METAINI_EXPANSION_MAX_CONFIGURATIONS to
// expansion.max_configurations: the first underscore separates the section.
func envKey(s string) string {
	return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
}

func stringToFormatHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(writer.Format("")) {
			return data, nil
		}
		return writer.ParseFormat(data.(string))
	}
}

func (c *Config) validate() error {
	if c.Parser.Assignment == "" {
		return errors.New(errors.ErrConfigValid, "parser.assignment must not be empty")
	}
	if c.Expansion.MaxConfigurations < 0 {
		return errors.Newf(errors.ErrConfigValid,
			"expansion.max_configurations must not be negative, got %d", c.Expansion.MaxConfigurations)
	}
	if c.Expansion.MaxResolutionPasses <= 0 {
		return errors.Newf(errors.ErrConfigValid,
			"expansion.max_resolution_passes must be positive, got %d", c.Expansion.MaxResolutionPasses)
	}
	return nil
}

// ExpansionOptions returns the engine options the configuration selects.
func (c *Config) ExpansionOptions() []expansion.Option {
	return []expansion.Option{
		expansion.WithAssignment(c.Parser.Assignment),
		expansion.WithCommentChars(c.Parser.CommentChars),
		expansion.WithMaxConfigurations(c.Expansion.MaxConfigurations),
		expansion.WithMaxResolutionPasses(c.Expansion.MaxResolutionPasses),
	}
}
