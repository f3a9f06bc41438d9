// Package runner invokes external tools and reports success plus whatever
// the tool printed as diagnostics.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Result is the outcome of one invocation.
type Result struct {
	Success     bool
	Diagnostics string
}

// Runner invokes a named external command.
type Runner interface {
	Invoke(ctx context.Context, name string, args ...string) Result
}

// Exec runs commands on the host.
type Exec struct{}

// Invoke runs name with args and captures stderr, or stdout when the tool
// wrote nothing to stderr.
func (Exec) Invoke(ctx context.Context, name string, args ...string) Result {
	cmd := exec.CommandContext(ctx, name, args...)
	if err := run(cmd); err != nil {
		return Result{Success: false, Diagnostics: err.Error()}
	}
	return Result{Success: true}
}

// run executes a command and returns an error with its diagnostics if it fails.
func run(cmd *exec.Cmd) error {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return nil
	}
	output := stderr.String()
	if strings.TrimSpace(output) == "" {
		output = stdout.String()
	}
	return fmt.Errorf("command failed: %s: %v\n%s", cmd.String(), err, output)
}
