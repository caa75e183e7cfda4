// internal/config/config.go
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codebundle/internal/archive"
	"codebundle/internal/errors"
	"codebundle/internal/logging"
	"codebundle/internal/manifest"
	"codebundle/internal/workspace"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CODEBUNDLE_PATHS_SOURCE
const EnvPrefix = "CODEBUNDLE"

type Config struct {
	Paths struct {
		Source   string `mapstructure:"source" json:"source" yaml:"source"`
		Output   string `mapstructure:"output" json:"output" yaml:"output"`
		Archive  string `mapstructure:"archive" json:"archive" yaml:"archive"`
		HTML     string `mapstructure:"html" json:"html" yaml:"html"`
		Manifest string `mapstructure:"manifest" json:"manifest" yaml:"manifest"`
		Restore  string `mapstructure:"restore" json:"restore" yaml:"restore"`
	} `mapstructure:"paths" json:"paths" yaml:"paths"`

	Exclude struct {
		Files []string `mapstructure:"files" json:"files" yaml:"files"`
		Dirs  []string `mapstructure:"dirs" json:"dirs" yaml:"dirs"`
	} `mapstructure:"exclude" json:"exclude" yaml:"exclude"`

	Format string `mapstructure:"format" json:"format" yaml:"format"` // legacy, strict
	Lock   bool   `mapstructure:"lock" json:"lock" yaml:"lock"`

	Server struct {
		Host string `mapstructure:"host" json:"host" yaml:"host"`
		Port int    `mapstructure:"port" json:"port" yaml:"port"`
	} `mapstructure:"server" json:"server" yaml:"server"`

	Database struct {
		Path string `mapstructure:"path" json:"path" yaml:"path"`
		Keep int    `mapstructure:"keep" json:"keep" yaml:"keep"` // runs kept by prune, 0 keeps all
	} `mapstructure:"database" json:"database" yaml:"database"`

	Watch struct {
		Debounce string `mapstructure:"debounce" json:"debounce" yaml:"debounce"`
	} `mapstructure:"watch" json:"watch" yaml:"watch"`

	Environment string `mapstructure:"environment" json:"environment" yaml:"environment"` // development, production
	LogLevel    string `mapstructure:"log_level" json:"log_level" yaml:"log_level"`       // debug, info, warn, error
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("paths.source", "./src")
	v.SetDefault("paths.output", "./myfolder")
	v.SetDefault("paths.archive", archive.DefaultArchiveName)
	v.SetDefault("paths.html", archive.DefaultHTMLName)
	v.SetDefault("paths.manifest", manifest.DefaultFileName)
	v.SetDefault("paths.restore", "./myfolder/restored")
	v.SetDefault("exclude.files", []string{"package-lock.json", ".DS_Store"})
	v.SetDefault("exclude.dirs", []string{"node_modules", "dist", ".git"})
	v.SetDefault("format", string(archive.FormatLegacy))
	v.SetDefault("lock", true)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.path", "./myfolder/.codebundle/db")
	v.SetDefault("database.keep", 0)
	v.SetDefault("watch.debounce", "500ms")
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
}

// ConfigPath picks config/config.<env>.json from CODEBUNDLE_ENV, or "" when
// that file does not exist.
func ConfigPath() string {
	env := os.Getenv(EnvPrefix + "_ENV")
	if env == "" {
		env = "development"
	}
	path := fmt.Sprintf("config/config.%s.json", env)
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// Default returns the built-in configuration without reading files or env
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// defaults always decode
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads path (JSON or YAML by extension) over the defaults and applies
// CODEBUNDLE_* environment overrides. An empty path uses defaults and env only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Filesystem("reading config", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations no entry point could run with
func (c *Config) Validate() error {
	required := map[string]string{
		"paths.source":   c.Paths.Source,
		"paths.output":   c.Paths.Output,
		"paths.archive":  c.Paths.Archive,
		"paths.html":     c.Paths.HTML,
		"paths.manifest": c.Paths.Manifest,
		"paths.restore":  c.Paths.Restore,
	}
	var missing []string
	for key, val := range required {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return errors.ValidationError("config paths must not be empty", missing)
	}

	for _, name := range []string{c.Paths.Archive, c.Paths.HTML, c.Paths.Manifest} {
		if filepath.Base(name) != name {
			return errors.ValidationError("artifact names must be plain file names", name)
		}
	}

	if _, err := archive.ParseFormat(c.Format); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return errors.ValidationError("unknown log level", c.LogLevel)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.ValidationError("server port out of range", c.Server.Port)
	}
	if c.Database.Keep < 0 {
		return errors.ValidationError("database.keep must not be negative", c.Database.Keep)
	}
	return nil
}

// Policy builds the exclusion policy every walk uses
func (c *Config) Policy() workspace.ExclusionPolicy {
	return workspace.NewExclusionPolicy(c.Exclude.Files, c.Exclude.Dirs)
}

// ArchiveFormat returns the validated archive format
func (c *Config) ArchiveFormat() archive.Format {
	f, err := archive.ParseFormat(c.Format)
	if err != nil {
		return archive.FormatLegacy
	}
	return f
}

func (c *Config) ArchivePath() string {
	return filepath.Join(c.Paths.Output, c.Paths.Archive)
}

func (c *Config) HTMLPath() string {
	return filepath.Join(c.Paths.Output, c.Paths.HTML)
}

func (c *Config) ManifestPath() string {
	return filepath.Join(c.Paths.Output, c.Paths.Manifest)
}

// Addr is the HTTP listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
