package system

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/specialistvlad/dmutils/internal/ctxlog"
	"github.com/specialistvlad/dmutils/internal/ctyutil"
	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/zclconf/go-cty/cty"
)

// ReturnCodeError reports a process that exited with a non-zero code.
type ReturnCodeError struct {
	Process string
	Code    int
}

func (e *ReturnCodeError) Error() string {
	return fmt.Sprintf("Execute [%s] fail, exit.", e.Process)
}

// ExitCode returns 1, the status a CLI should exit with.
func (e *ReturnCodeError) ExitCode() int {
	return 1
}

// Result is the outcome of Run.
type Result struct {
	Output     []string
	ReturnCode int
}

// Run executes command through the platform shell with stderr merged into
// stdout. Every output line is trimmed and logged at debug level as it
// arrives. A non-zero exit is reported in ReturnCode, not as an error.
func Run(ctx context.Context, command, dir string) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	}
	cmd.Dir = dir
	cmd.WaitDelay = time.Second

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	logger.Debug("Running command.", "command", command, "cwd", dir)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		waitErr <- err
	}()

	res := &Result{Output: []string{}}
	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		logger.Debug("Command output.", "line", line)
		res.Output = append(res.Output, line)
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// Drain so Wait can return.
		_, _ = io.Copy(io.Discard, pr)
	}

	err := <-waitErr
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		res.ReturnCode = exitErr.ExitCode()
	case err != nil:
		return nil, err
	}
	if scanErr != nil {
		return nil, fmt.Errorf("failed to read command output: %w", scanErr)
	}
	logger.Debug("Command finished.", "return_code", res.ReturnCode, "lines", len(res.Output))
	return res, nil
}

func sysc(ctx context.Context, args *namespace.Args) (cty.Value, error) {
	command, err := args.String("command")
	if err != nil {
		return cty.NilVal, err
	}
	var dir string
	if !args.IsNull("cwd") {
		if dir, err = args.String("cwd"); err != nil {
			return cty.NilVal, err
		}
	}

	res, err := Run(ctx, command, dir)
	if err != nil {
		return cty.NilVal, err
	}
	return cty.ObjectVal(map[string]cty.Value{
		"output":      ctyutil.StringList(res.Output),
		"return_code": cty.NumberIntVal(int64(res.ReturnCode)),
	}), nil
}

func checkReturnCode(ctx context.Context, args *namespace.Args) (cty.Value, error) {
	rc, err := args.Int("rc")
	if err != nil {
		return cty.NilVal, err
	}
	process, err := args.String("process")
	if err != nil {
		return cty.NilVal, err
	}
	exitOnFail, err := args.Bool("exit_on_fail")
	if err != nil {
		return cty.NilVal, err
	}

	if rc == 0 {
		return cty.StringVal(fmt.Sprintf("Execute [%s] success.", process)), nil
	}
	failure := &ReturnCodeError{Process: process, Code: rc}
	if exitOnFail {
		return cty.NilVal, failure
	}
	ctxlog.FromContext(ctx).Warn("Process failed.", "process", process, "return_code", rc)
	return cty.StringVal(failure.Error()), nil
}
