// Package shell runs the external tools ephemvm depends on (cloud-localds,
// truncate, mount, umount, qemu) and turns failures into ToolInvocationError.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/jbweber/ephemvm/internal/logger"
)

// Runner executes an external tool and returns its stdout.
//
// Implementations must return a *ToolInvocationError when the tool cannot be
// started or exits non-zero.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ToolInvocationError is returned when an external tool is missing or exits
// with a non-zero status.
type ToolInvocationError struct {
	Tool     string
	Args     []string
	ExitCode int // -1 when the process never ran or was killed
	Stderr   string
	Err      error
}

func (e *ToolInvocationError) Error() string {
	msg := fmt.Sprintf("%s failed (exit code %d)", e.Tool, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ToolInvocationError) Unwrap() error { return e.Err }

// ExecRunner runs tools with os/exec.
type ExecRunner struct {
	// Passthrough, when set, also receives the tool's stdout and stderr as
	// they are produced. Used for the VMM, whose console output is useful.
	Passthrough io.Writer
}

// NewExecRunner returns a runner that only captures output.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes name with args, capturing stdout and stderr.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	log := logger.Logger()
	log.Debugf("Exec: [%s %s]", name, strings.Join(args, " "))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	if r.Passthrough != nil {
		cmd.Stdout = io.MultiWriter(&stdout, r.Passthrough)
		cmd.Stderr = io.MultiWriter(&stderr, r.Passthrough)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return stdout.Bytes(), &ToolInvocationError{
			Tool:     name,
			Args:     args,
			ExitCode: exitCode,
			Stderr:   stderr.String(),
			Err:      err,
		}
	}

	if stderr.Len() > 0 {
		log.Debugf("%s stderr: %s", name, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// IsCommandExist reports whether name resolves on PATH.
func IsCommandExist(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
