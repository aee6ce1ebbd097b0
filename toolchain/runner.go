// Package toolchain invokes the open-source iCE40 build pipeline (yosys
// for synthesis, nextpnr-ice40 for place and route, icepack for bitstream
// packing) through a capability interface, so the pipeline can be driven
// and tested without the tools installed. A non-zero exit from any tool
// is an error carrying the tool's output; it is never swallowed.
package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Result is the outcome of one tool invocation.
type Result struct {
	Tool   string
	Args   []string
	Output []byte // combined stdout and stderr
}

// Runner executes one external tool in dir and returns its output. An
// unsuccessful exit must be returned as an error.
type Runner interface {
	Run(ctx context.Context, dir, tool string, args ...string) (Result, error)
}

// ExecRunner runs tools as subprocesses.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, dir, tool string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	res := Result{Tool: tool, Args: args, Output: out.Bytes()}
	if err != nil {
		return res, &ToolError{Tool: tool, Output: out.Bytes(), Err: err}
	}
	return res, nil
}

// ToolError is a failed tool invocation: the wrapped process error plus
// the captured output for diagnosis.
type ToolError struct {
	Tool   string
	Output []byte
	Err    error
}

func (e *ToolError) Error() string {
	if len(e.Output) == 0 {
		return fmt.Sprintf("toolchain: %s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("toolchain: %s: %v\n%s", e.Tool, e.Err, e.Output)
}

func (e *ToolError) Unwrap() error { return e.Err }
