package compiler

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Exec runs an external command that reads the source on stdin and writes
// the result to stdout. The options "command" and "args" override the
// defaults, and "load_paths" adds include directories.
type Exec struct {
	Command      string
	Args         []string
	LoadPathFlag string
}

// Compile runs the command in the source's directory.
func (e *Exec) Compile(ctx context.Context, src Source) (Result, error) {
	command := src.Options.String("command", e.Command)
	if err := validateCommand(command); err != nil {
		return Result{}, fmt.Errorf("command validation failed: %w", err)
	}

	args := append([]string(nil), e.Args...)
	if override := src.Options.Strings("args"); len(override) > 0 {
		args = append([]string(nil), override...)
	}
	if e.LoadPathFlag != "" {
		if src.Dir != "" {
			args = append(args, e.LoadPathFlag+src.Dir)
		}
		for _, p := range src.Options.Strings("load_paths") {
			args = append(args, e.LoadPathFlag+p)
		}
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = src.Dir
	cmd.Stdin = bytes.NewReader(src.Content)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("%s canceled: %w", command, ctx.Err())
		}
		return Result{}, fmt.Errorf("%s failed: %w\nOutput: %s", command, err, strings.TrimSpace(stderr.String()))
	}

	return Result{Output: stdout.Bytes()}, nil
}

// validateCommand rejects command names carrying shell syntax. Commands are
// never run through a shell, so this only catches configuration mistakes.
func validateCommand(command string) error {
	if command == "" {
		return fmt.Errorf("command cannot be empty")
	}
	dangerous := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\n"}
	for _, char := range dangerous {
		if strings.Contains(command, char) {
			return fmt.Errorf("command %q contains dangerous character: %s", command, char)
		}
	}
	if strings.TrimSpace(command) != command || strings.Contains(command, " ") {
		return fmt.Errorf("command %q must not contain spaces, use args instead", command)
	}
	return nil
}
