package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/simplest/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	v := viper.New()

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "src", cfg.Input)
	assert.Equal(t, "build", cfg.Output)
	assert.Equal(t, "template.html", cfg.Template)
	assert.Equal(t, []string{".html", ".htm"}, cfg.HTMLExtensions)
	assert.Equal(t, []string{".sass", ".scss", ".less"}, cfg.IgnoreExtensions)
	assert.Equal(t, 100*time.Millisecond, cfg.Watch.Debounce)
	assert.True(t, cfg.Server.LiveReload)
	assert.Positive(t, cfg.Build.Workers)
	assert.NotNil(t, cfg.Compilers)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, ".simplest.yml")
	content := `
input: site
output: dist
template: layout.html
html_extensions: [".html", "htm", ".PHP"]
pass_through: ["FAQ/keep_intact.*"]
compilers:
  markdown:
    gfm: false
plugins:
  - name: pug
    extensions: [".pug"]
    command: pug
    output_extension: .html
watch:
  debounce: 250ms
server:
  port: 8080
  live_reload: false
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	v := viper.New()
	v.SetConfigFile(file)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "site", cfg.Input)
	assert.Equal(t, "dist", cfg.Output)
	assert.Equal(t, "layout.html", cfg.Template)
	assert.Equal(t, []string{".html", ".htm", ".php"}, cfg.HTMLExtensions)
	assert.Equal(t, []string{"FAQ/keep_intact.*"}, cfg.PassThrough)
	assert.Equal(t, false, cfg.Compilers["markdown"]["gfm"])
	require.Len(t, cfg.Plugins, 1)
	assert.Equal(t, "pug", cfg.Plugins[0].Name)
	assert.Equal(t, ".html", cfg.Plugins[0].OutputExtension)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Server.LiveReload)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(*Config) {}, false},
		{"output equals input", func(c *Config) { c.Output = c.Input }, true},
		{"output inside input", func(c *Config) { c.Output = filepath.Join(c.Input, "out") }, true},
		{"input inside output", func(c *Config) { c.Input = filepath.Join(c.Output, "src") }, true},
		{"sibling with shared prefix", func(c *Config) { c.Input = "site"; c.Output = "site-build" }, false},
		{"template is a path", func(c *Config) { c.Template = "layouts/template.html" }, true},
		{"bad pass-through glob", func(c *Config) { c.PassThrough = []string{"[a-"} }, true},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"plugin without command", func(c *Config) {
			c.Plugins = []PluginConfig{{Name: "pug", Extensions: []string{".pug"}}}
		}, true},
		{"duplicate plugin", func(c *Config) {
			p := PluginConfig{Name: "pug", Extensions: []string{".pug"}, Command: "pug"}
			c.Plugins = []PluginConfig{p, p}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsConfigError(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestExtensionMatching(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.IsHTML("index.html"))
	assert.True(t, cfg.IsHTML("docs/PAGE.HTM"))
	assert.False(t, cfg.IsHTML("style.css"))
	assert.True(t, cfg.IsIgnored("css/site.scss"))
	assert.True(t, cfg.IsTemplate("a/b/template.html"))
	assert.False(t, cfg.IsTemplate("a/b/template.html.bak"))
	assert.True(t, HasExtension("vendor/app.min.js", []string{".min.js"}))
}

func TestIsPassThrough(t *testing.T) {
	cfg := Default()
	cfg.PassThrough = []string{"FAQ/keep_intact.*", "vendor/**"}

	assert.True(t, cfg.IsPassThrough("FAQ/keep_intact.html"))
	assert.False(t, cfg.IsPassThrough("FAQ/other.html"))
	assert.True(t, cfg.IsPassThrough("vendor/lib/x.js"))
	assert.False(t, cfg.IsPassThrough("src/vendor.js"))
}
