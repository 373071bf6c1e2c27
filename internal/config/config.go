// Package config provides configuration management for simplest using Viper
// for loading from files, environment variables and command-line flags.
//
// The configuration describes the input and output trees, the template file
// name, which extensions are pages or source-only, pass-through globs, option
// bags handed to external compilers, user plugins, and the watch and dev
// server settings.
package config

import (
	"path"
	"runtime"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"
)

type Config struct {
	Input            string                     `mapstructure:"input" yaml:"input"`
	Output           string                     `mapstructure:"output" yaml:"output"`
	Template         string                     `mapstructure:"template" yaml:"template"`
	HTMLExtensions   []string                   `mapstructure:"html_extensions" yaml:"html_extensions"`
	IgnoreExtensions []string                   `mapstructure:"ignore_extensions" yaml:"ignore_extensions"`
	PassThrough      []string                   `mapstructure:"pass_through" yaml:"pass_through"`
	Verbose          bool                       `mapstructure:"verbose" yaml:"verbose"`
	Compilers        map[string]CompilerOptions `mapstructure:"compilers" yaml:"compilers"`
	Plugins          []PluginConfig             `mapstructure:"plugins" yaml:"plugins"`
	Build            BuildConfig                `mapstructure:"build" yaml:"build"`
	Watch            WatchConfig                `mapstructure:"watch" yaml:"watch"`
	Server           ServerConfig               `mapstructure:"server" yaml:"server"`
	Log              LogConfig                  `mapstructure:"log" yaml:"log"`
}

// CompilerOptions is an opaque option bag passed to one external compiler.
type CompilerOptions map[string]interface{}

// PluginConfig declares a user plugin backed by an external command. The
// command reads the source on stdin and writes the result to stdout.
type PluginConfig struct {
	Name            string   `mapstructure:"name" yaml:"name"`
	Extensions      []string `mapstructure:"extensions" yaml:"extensions"`
	Command         string   `mapstructure:"command" yaml:"command"`
	Args            []string `mapstructure:"args" yaml:"args"`
	OutputExtension string   `mapstructure:"output_extension" yaml:"output_extension"`
}

type BuildConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
	Ignore   []string      `mapstructure:"ignore" yaml:"ignore"`
}

type ServerConfig struct {
	Host       string `mapstructure:"host" yaml:"host"`
	Port       int    `mapstructure:"port" yaml:"port"`
	LiveReload bool   `mapstructure:"live_reload" yaml:"live_reload"`
	Open       bool   `mapstructure:"open" yaml:"open"`
	Proxy      string `mapstructure:"proxy" yaml:"proxy"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults(nil)
	return cfg
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads, defaults and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults(v)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults(v *viper.Viper) {
	if c.Input == "" {
		c.Input = "src"
	}
	if c.Output == "" {
		c.Output = "build"
	}
	if c.Template == "" {
		c.Template = "template.html"
	}
	if len(c.HTMLExtensions) == 0 {
		c.HTMLExtensions = []string{".html", ".htm"}
	}
	if c.IgnoreExtensions == nil {
		c.IgnoreExtensions = []string{".sass", ".scss", ".less"}
	}
	c.HTMLExtensions = normalizeExtensions(c.HTMLExtensions)
	c.IgnoreExtensions = normalizeExtensions(c.IgnoreExtensions)
	for i := range c.Plugins {
		c.Plugins[i].Extensions = normalizeExtensions(c.Plugins[i].Extensions)
		c.Plugins[i].OutputExtension = strings.ToLower(c.Plugins[i].OutputExtension)
	}
	if c.Compilers == nil {
		c.Compilers = make(map[string]CompilerOptions)
	}

	if c.Build.Workers <= 0 {
		c.Build.Workers = runtime.NumCPU()
	}

	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = 100 * time.Millisecond
	}
	if c.Watch.Ignore == nil {
		c.Watch.Ignore = []string{"*.tmp", "*.swp", "*.swx", "*~", ".#*", "4913", "*.sass-cache"}
	}

	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	// viper cannot tell an explicit false from an unset bool after Unmarshal
	if v == nil || !v.IsSet("server.live_reload") {
		c.Server.LiveReload = true
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// HasExtension reports whether name ends with one of exts. Matching is by
// suffix, so multi-part extensions such as ".min.js" work.
func HasExtension(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// IsHTML reports whether the input-relative path is an HTML-like page.
func (c *Config) IsHTML(rel string) bool {
	return HasExtension(rel, c.HTMLExtensions)
}

// IsIgnored reports whether the file is source-only and never copied verbatim.
func (c *Config) IsIgnored(rel string) bool {
	return HasExtension(rel, c.IgnoreExtensions)
}

// IsTemplate reports whether the input-relative path names a template file.
func (c *Config) IsTemplate(rel string) bool {
	return path.Base(rel) == c.Template
}

// IsPassThrough reports whether the input-relative, slash separated path
// matches one of the pass-through globs.
func (c *Config) IsPassThrough(rel string) bool {
	for _, pattern := range c.PassThrough {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// CompilerOptionsFor returns the option bag for a compiler, never nil.
func (c *Config) CompilerOptionsFor(name string) CompilerOptions {
	if opts, ok := c.Compilers[name]; ok && opts != nil {
		return opts
	}
	return CompilerOptions{}
}
