package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/conneroisu/simplest/internal/errors"
)

// Validate checks the configuration and returns a configuration error
// listing every invalid field.
func Validate(cfg *Config) error {
	var vec errors.ValidationErrorCollection

	validatePaths(cfg, &vec)
	validateTemplate(cfg, &vec)
	validateExtensions("html_extensions", cfg.HTMLExtensions, &vec)
	validateExtensions("ignore_extensions", cfg.IgnoreExtensions, &vec)
	validateGlobs("pass_through", cfg.PassThrough, &vec)
	validateGlobs("watch.ignore", cfg.Watch.Ignore, &vec)
	validatePlugins(cfg.Plugins, &vec)
	validateServer(&cfg.Server, &vec)

	if vec.HasErrors() {
		return vec.ToBuildError()
	}
	return nil
}

func validatePaths(cfg *Config, vec *errors.ValidationErrorCollection) {
	input, errIn := filepath.Abs(cfg.Input)
	output, errOut := filepath.Abs(cfg.Output)
	if errIn != nil || errOut != nil {
		vec.AddField("input", cfg.Input, "cannot resolve input or output path")
		return
	}

	if input == output {
		vec.AddField("output", cfg.Output, "output must differ from input",
			"use a sibling directory such as build/")
		return
	}
	if isWithin(output, input) {
		vec.AddField("output", cfg.Output, "output must not be inside input",
			"the builder would pick up its own output on the next run")
	}
	if isWithin(input, output) {
		vec.AddField("output", cfg.Output, "input must not be inside output",
			"a full build removes the output root")
	}
}

func isWithin(child, parent string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func validateTemplate(cfg *Config, vec *errors.ValidationErrorCollection) {
	if strings.ContainsAny(cfg.Template, `/\`) {
		vec.AddField("template", cfg.Template, "template must be a file name, not a path",
			fmt.Sprintf("use %q", filepath.Base(cfg.Template)))
	}
}

func validateExtensions(field string, exts []string, vec *errors.ValidationErrorCollection) {
	for _, ext := range exts {
		if len(ext) < 2 || strings.ContainsAny(ext, `/\ *?`) {
			vec.AddField(field, ext, "invalid extension")
		}
	}
}

func validateGlobs(field string, patterns []string, vec *errors.ValidationErrorCollection) {
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			vec.AddField(field, pattern, "invalid glob pattern")
		}
	}
}

func validatePlugins(plugins []PluginConfig, vec *errors.ValidationErrorCollection) {
	seen := make(map[string]bool, len(plugins))
	for i, p := range plugins {
		field := fmt.Sprintf("plugins[%d]", i)
		if p.Name == "" {
			vec.AddField(field+".name", p.Name, "plugin name is required")
		} else if seen[p.Name] {
			vec.AddField(field+".name", p.Name, "duplicate plugin name")
		}
		seen[p.Name] = true

		if p.Command == "" {
			vec.AddField(field+".command", p.Command, "plugin command is required")
		}
		if len(p.Extensions) == 0 {
			vec.AddField(field+".extensions", p.Extensions, "plugin must claim at least one extension")
		}
		validateExtensions(field+".extensions", p.Extensions, vec)
		if p.OutputExtension != "" && !strings.HasPrefix(p.OutputExtension, ".") {
			vec.AddField(field+".output_extension", p.OutputExtension, "extension must start with a dot")
		}
	}
}

func validateServer(cfg *ServerConfig, vec *errors.ValidationErrorCollection) {
	// 0 lets the OS pick a port in tests
	if cfg.Port < 0 || cfg.Port > 65535 {
		vec.AddField("server.port", cfg.Port, fmt.Sprintf("port %d is not in valid range 0-65535", cfg.Port))
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(cfg.Host, char) {
			vec.AddField("server.host", cfg.Host, "host contains dangerous character: "+char)
			break
		}
	}
}
