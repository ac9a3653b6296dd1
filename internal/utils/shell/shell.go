package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/google/shlex"
	"github.com/magefile/mage/sh"
	"github.com/potassco/gringo-dist/internal/utils/logger"
)

const maxLineBytes = 1024 * 1024

// Executor runs external commands. Commands are given as a single string and
// split with shell quoting rules, but never handed to a shell.
type Executor interface {
	ExecCmd(ctx context.Context, cmdStr string, dir string, envVal []string) (string, error)
	ExecCmdWithStream(ctx context.Context, cmdStr string, dir string, envVal []string) (string, error)
	IsCommandExist(cmd string) bool
}

// DefaultExecutor runs commands on the host.
type DefaultExecutor struct{}

// Default is the executor used by the package-level helpers. Tests replace it
// with a MockExecutor.
var Default Executor = &DefaultExecutor{}

// CmdError is returned when a command ran and exited non-zero, or could not
// be started at all.
type CmdError struct {
	Cmd      string
	Dir      string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CmdError) Error() string {
	msg := fmt.Sprintf("failed to exec %s", e.Cmd)
	if e.Dir != "" {
		msg += " in " + e.Dir
	}
	msg += fmt.Sprintf(" (exit status %d)", e.ExitCode)
	if e.Stderr != "" {
		msg += ":\n" + e.Stderr
	}
	return msg
}

func (e *CmdError) Unwrap() error { return e.Err }

// ExecCmd runs cmdStr with Default.
func ExecCmd(ctx context.Context, cmdStr string, dir string, envVal []string) (string, error) {
	return Default.ExecCmd(ctx, cmdStr, dir, envVal)
}

// ExecCmdWithStream runs cmdStr with Default, streaming its output to the log.
func ExecCmdWithStream(ctx context.Context, cmdStr string, dir string, envVal []string) (string, error) {
	return Default.ExecCmdWithStream(ctx, cmdStr, dir, envVal)
}

// IsCommandExist reports whether cmd resolves through Default.
func IsCommandExist(cmd string) bool {
	return Default.IsCommandExist(cmd)
}

// SplitCmd splits a command line into argv using shell quoting rules.
func SplitCmd(cmdStr string) ([]string, error) {
	argv, err := shlex.Split(cmdStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command %q: %w", cmdStr, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	return argv, nil
}

// JoinCmd builds a command string from argv, quoting arguments that contain
// whitespace or quotes so SplitCmd gives back the same argv.
func JoinCmd(argv ...string) string {
	quoted := make([]string, 0, len(argv))
	for _, a := range argv {
		if a == "" || strings.ContainsAny(a, " \t\n'\"\\") {
			a = "'" + strings.ReplaceAll(a, "'", `'"'"'`) + "'"
		}
		quoted = append(quoted, a)
	}
	return strings.Join(quoted, " ")
}

func (e *DefaultExecutor) command(ctx context.Context, cmdStr string, dir string, envVal []string) (*exec.Cmd, error) {
	log := logger.Logger()

	argv, err := SplitCmd(cmdStr)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), envVal...)

	if dir != "" {
		log.Debugf("Exec: [%s] in %s", cmdStr, dir)
	} else {
		log.Debugf("Exec: [%s]", cmdStr)
	}
	return cmd, nil
}

// lockedBuilder serialises writes from the stdout and stderr copiers.
type lockedBuilder struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *lockedBuilder) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.Write(p)
}

func (b *lockedBuilder) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}

// ExecCmd executes a command and returns its combined output.
func (e *DefaultExecutor) ExecCmd(ctx context.Context, cmdStr string, dir string, envVal []string) (string, error) {
	log := logger.Logger()

	cmd, err := e.command(ctx, cmdStr, dir, envVal)
	if err != nil {
		return "", err
	}

	var stderr strings.Builder
	combined := &lockedBuilder{}
	cmd.Stdout = combined
	cmd.Stderr = io.MultiWriter(combined, &stderr)

	err = cmd.Run()
	outputStr := combined.String()
	if err != nil {
		if outputStr != "" {
			log.Infof("%s", outputStr)
		}
		return outputStr, &CmdError{
			Cmd:      cmdStr,
			Dir:      dir,
			ExitCode: sh.ExitStatus(err),
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}
	if outputStr != "" {
		log.Debugf("%s", outputStr)
	}
	return outputStr, nil
}

// ExecCmdWithStream executes a command and streams stdout and stderr lines
// to the log as they arrive. It returns stdout; stderr is kept for the error.
func (e *DefaultExecutor) ExecCmdWithStream(ctx context.Context, cmdStr string, dir string, envVal []string) (string, error) {
	log := logger.Logger()

	cmd, err := e.command(ctx, cmdStr, dir, envVal)
	if err != nil {
		return "", err
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stdout pipe for command %s: %w", cmdStr, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stderr pipe for command %s: %w", cmdStr, err)
	}

	if err := cmd.Start(); err != nil {
		return "", &CmdError{Cmd: cmdStr, Dir: dir, ExitCode: sh.ExitStatus(err), Err: err}
	}

	var wg sync.WaitGroup
	var outLines, errLines []string
	stream := func(r io.Reader, sink *[]string) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
		for scanner.Scan() {
			str := scanner.Text()
			*sink = append(*sink, str)
			if str != "" {
				log.Infof("%s", str)
			}
		}
	}

	wg.Add(2)
	go stream(stdout, &outLines)
	go stream(stderr, &errLines)
	wg.Wait()

	outputStr := strings.Join(outLines, "\n")
	if err := cmd.Wait(); err != nil {
		return outputStr, &CmdError{
			Cmd:      cmdStr,
			Dir:      dir,
			ExitCode: sh.ExitStatus(err),
			Stderr:   strings.Join(errLines, "\n"),
			Err:      err,
		}
	}
	return outputStr, nil
}

// IsCommandExist checks whether cmd can be found in PATH.
func (e *DefaultExecutor) IsCommandExist(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}
