package cmd

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"os/exec"
	"strings"
)

type SubprocessErr struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (err SubprocessErr) Error() string {
	if err.Stderr != "" {
		return fmt.Sprintf(
			"Git subprocess exited with code %d. Error output:\n%s",
			err.ExitCode,
			err.Stderr,
		)
	}

	return fmt.Sprintf("Git subprocess exited with code %d", err.ExitCode)
}

func (err SubprocessErr) Unwrap() error {
	return err.Err
}

// Where, and with which binary, git is invoked.
type Target struct {
	Bin string   // Defaults to "git"
	Dir string   // Working directory; empty means the current one
	Env []string // Added to the environment of this process
}

func (t Target) bin() string {
	if t.Bin == "" {
		return "git"
	}

	return t.Bin
}

type Subprocess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser
}

func (s Subprocess) StdinWriter() (_ *bufio.Writer, closer func() error) {
	return bufio.NewWriter(s.stdin), func() error {
		return s.stdin.Close()
	}
}

// Returns a single-use iterator over the output of the command, line by line.
func (s Subprocess) StdoutLines() (iter.Seq[string], func() error) {
	var iterErr error

	seq := func(yield func(string) bool) {
		scanner := bufio.NewScanner(s.stdout)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}

		iterErr = scanner.Err()
	}

	finish := func() error {
		if iterErr != nil {
			iterErr = fmt.Errorf("error while scanning: %w", iterErr)
		}

		return iterErr
	}

	return seq, finish
}

// Returns a single-use iterator over records of the command output separated
// by sep. Empty records are dropped.
//
// Patches can be large, so the scanner buffer is allowed to grow well past the
// bufio default.
func (s Subprocess) StdoutRecords(sep string) (iter.Seq[string], func() error) {
	var iterErr error

	seq := func(yield func(string) bool) {
		scanner := bufio.NewScanner(s.stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)

		scanner.Split(func(data []byte, atEOF bool) (int, []byte, error) {
			i := bytes.Index(data, []byte(sep))
			if i >= 0 {
				return i + len(sep), data[:i], nil
			}

			if atEOF {
				if len(data) == 0 {
					return 0, nil, nil
				}
				return len(data), data, bufio.ErrFinalToken
			}

			return 0, nil, nil // Scan more
		})

		for scanner.Scan() {
			record := scanner.Text()
			if len(record) == 0 {
				continue
			}

			if !yield(record) {
				return
			}
		}

		iterErr = scanner.Err()
	}

	finish := func() error {
		if iterErr != nil {
			iterErr = fmt.Errorf("error while scanning: %w", iterErr)
		}

		return iterErr
	}

	return seq, finish
}

const maxRecordSize = 256 * 1024 * 1024

func (s Subprocess) Wait() error {
	logger().Debug("waiting for subprocess...")

	stderr, err := io.ReadAll(s.stderr)
	if err != nil {
		return fmt.Errorf("could not read stderr: %w", err)
	}

	err = s.cmd.Wait()
	logger().Debug(
		"subprocess exited",
		"code",
		s.cmd.ProcessState.ExitCode(),
	)

	if err != nil {
		return SubprocessErr{
			ExitCode: s.cmd.ProcessState.ExitCode(),
			Stderr:   strings.TrimSpace(string(stderr)),
			Err:      err,
		}
	}

	return nil
}

// Kills the subprocess and reaps it. Use instead of Wait when output is not
// read to the end, since git blocks once the stdout pipe is full.
func (s Subprocess) Kill() error {
	err := s.cmd.Process.Kill()
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("could not kill subprocess: %w", err)
	}

	_, _ = io.Copy(io.Discard, s.stderr)

	// Exit status of a killed process says nothing
	_ = s.cmd.Wait()
	logger().Debug("subprocess killed")
	return nil
}

func run(
	ctx context.Context,
	target Target,
	args []string,
	needStdin bool,
) (*Subprocess, error) {
	cmd := exec.CommandContext(ctx, target.bin(), args...)
	cmd.Dir = target.Dir
	if len(target.Env) > 0 {
		cmd.Env = append(os.Environ(), target.Env...)
	}
	logger().Debug("running subprocess", "cmd", cmd, "dir", target.Dir)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stderr pipe: %w", err)
	}

	var stdin io.WriteCloser
	if needStdin {
		stdin, err = cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to open stdin pipe: %w", err)
		}
	}

	err = cmd.Start()
	if err != nil {
		return nil, fmt.Errorf("failed to start subprocess: %w", err)
	}

	return &Subprocess{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}, nil
}

// Runs a git command to completion, discarding its output.
func runToCompletion(ctx context.Context, target Target, args []string) error {
	subprocess, err := run(ctx, target, args, false)
	if err != nil {
		return err
	}

	_, err = io.Copy(io.Discard, subprocess.stdout)
	if err != nil {
		return fmt.Errorf("could not read stdout: %w", err)
	}

	return subprocess.Wait()
}
