package builtin

import (
	"context"

	"github.com/conneroisu/simplest/internal/compiler"
	"github.com/conneroisu/simplest/internal/config"
	"github.com/conneroisu/simplest/internal/plugins"
)

// Command is a user plugin backed by an external command registered in the
// compiler table under the plugin's name.
type Command struct {
	Config config.PluginConfig
}

func (c *Command) Name() string         { return c.Config.Name }
func (c *Command) Extensions() []string { return c.Config.Extensions }

// Target applies the configured output extension, if any.
func (c *Command) Target(path string) string {
	if c.Config.OutputExtension == "" {
		return path
	}
	return plugins.ReplaceExtension(path, c.Config.Extensions, c.Config.OutputExtension)
}

func (c *Command) Parse(ctx context.Context, run *plugins.Run, file plugins.File, content []byte) (plugins.Action, error) {
	res, err := run.Compile(ctx, c.Config.Name, file.Path, content)
	if err != nil {
		return nil, err
	}

	target := c.Target(file.Path)
	if target != file.Path {
		return plugins.Rename{Path: target, Data: res.Output}, nil
	}
	return plugins.Content{Data: res.Output}, nil
}

// RegisterCommands adds an Exec compiler to table for every user plugin
// whose name is not registered yet.
func RegisterCommands(cfg *config.Config, table *compiler.Table) {
	for _, p := range cfg.Plugins {
		if _, err := table.Get(p.Name); err == nil {
			continue
		}
		table.Register(p.Name, &compiler.Exec{
			Command: p.Command,
			Args:    append([]string(nil), p.Args...),
		})
	}
}

// Defaults returns the plugin chain for cfg: user plugins first, then
// markdown, style, cachebust and page.
func Defaults(cfg *config.Config) []plugins.Plugin {
	var chain []plugins.Plugin
	for _, p := range cfg.Plugins {
		chain = append(chain, &Command{Config: p})
	}
	return append(chain,
		Markdown{},
		&Style{HTMLExtensions: cfg.HTMLExtensions},
		&CacheBust{HTMLExtensions: cfg.HTMLExtensions},
		&Page{HTMLExtensions: cfg.HTMLExtensions},
	)
}
