package accounts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	kerrors "github.com/PolarWolf314/kahu/internal/errors"
)

// Command is a program to run with elevated privilege.
type Command struct {
	Path string
	Args []string

	// Stdin is fed to the program. It is the only channel for secrets.
	Stdin []byte
}

// String renders the command for logs. Stdin is never included.
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Elevator runs commands with administrative privilege, prompting the user
// as the platform requires.
type Elevator interface {
	Run(ctx context.Context, cmd Command) error
}

// TerminalPrompter is implemented by elevators and provisioners whose
// authentication prompt is written to the controlling terminal.
type TerminalPrompter interface {
	PromptsOnTerminal() bool
}

// PromptsOnTerminal reports whether v asks for a password on the terminal.
func PromptsOnTerminal(v any) bool {
	p, ok := v.(TerminalPrompter)
	return ok && p.PromptsOnTerminal()
}

// ExitError reports a command that ran but failed.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return fmt.Sprintf("exit status %d: %s", e.Code, e.Stderr)
}

// Runner starts a process and waits for it. err is reserved for failures to
// start or wait; a non-zero exit is reported through code.
type Runner func(ctx context.Context, path string, args []string, stdin []byte) (code int, stderr string, err error)

// ExecRunner is the os/exec backed Runner.
func ExecRunner(ctx context.Context, path string, args []string, stdin []byte) (int, string, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, stderr.String(), ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), strings.TrimSpace(stderr.String()), nil
	}
	if err != nil {
		return -1, "", err
	}
	return 0, "", nil
}

// Elevation helpers on Unix.
const (
	ToolPkexec = "pkexec"
	ToolSudo   = "sudo"
)

// UnixElevator elevates through pkexec or sudo.
type UnixElevator struct {
	// Tool is ToolPkexec or ToolSudo.
	Tool   string
	Runner Runner
}

// NewUnixElevator picks tool, or the first helper found on PATH when tool
// is empty.
func NewUnixElevator(tool string) (*UnixElevator, error) {
	if tool == "" {
		for _, candidate := range []string{ToolPkexec, ToolSudo} {
			if _, err := exec.LookPath(candidate); err == nil {
				tool = candidate
				break
			}
		}
	}
	if tool == "" {
		return nil, fmt.Errorf("%w: neither pkexec nor sudo is installed", kerrors.ErrElevationDenied)
	}
	if tool != ToolPkexec && tool != ToolSudo {
		return nil, fmt.Errorf("unknown elevation tool %q", tool)
	}
	return &UnixElevator{Tool: tool, Runner: ExecRunner}, nil
}

// PromptsOnTerminal is true for sudo. pkexec asks through a polkit agent.
func (e *UnixElevator) PromptsOnTerminal() bool {
	return e.Tool == ToolSudo
}

func (e *UnixElevator) Run(ctx context.Context, cmd Command) error {
	var path string
	var args []string

	switch e.Tool {
	case ToolPkexec:
		path = ToolPkexec
		args = append([]string{cmd.Path}, cmd.Args...)
	case ToolSudo:
		// -k ignores cached credentials so every call prompts.
		path = ToolSudo
		args = append([]string{"-k", "-p", "[kahu] password for %u: ", "--", cmd.Path}, cmd.Args...)
	default:
		return fmt.Errorf("unknown elevation tool %q", e.Tool)
	}

	code, stderr, err := e.Runner(ctx, path, args, cmd.Stdin)
	if err != nil {
		if ctx.Err() != nil {
			return kerrors.FromContext(ctx.Err())
		}
		return fmt.Errorf("%w: starting %s: %v", kerrors.ErrElevationDenied, path, err)
	}

	if code != 0 && e.denied(code) {
		return fmt.Errorf("%w: %s exited with status %d", kerrors.ErrElevationDenied, path, code)
	}
	if code != 0 {
		return &ExitError{Code: code, Stderr: stderr}
	}
	return nil
}

// denied reports whether code is the helper's own refusal status rather than
// the elevated command's. Account scripts exit with planFailureCode and up,
// which avoids both.
func (e *UnixElevator) denied(code int) bool {
	switch e.Tool {
	case ToolPkexec:
		// 126: authentication dialog dismissed, 127: not authorized.
		return code == 126 || code == 127
	case ToolSudo:
		return code == 1
	}
	return false
}

// uacCancelled is ERROR_CANCELLED, reported when the UAC prompt is declined.
const uacCancelled = 1223

// WindowsElevator elevates through PowerShell's Start-Process -Verb RunAs.
type WindowsElevator struct {
	// PowerShell is the interpreter path; "powershell.exe" when empty.
	PowerShell string
	Runner     Runner
}

func NewWindowsElevator() *WindowsElevator {
	return &WindowsElevator{PowerShell: "powershell.exe", Runner: ExecRunner}
}

// Run starts cmd elevated and waits for it. Windows cannot pipe stdin into
// an elevated process, so commands carrying Stdin are rejected.
func (e *WindowsElevator) Run(ctx context.Context, cmd Command) error {
	if len(cmd.Stdin) > 0 {
		return fmt.Errorf("elevated commands cannot receive stdin on windows")
	}

	quoted := make([]string, 0, len(cmd.Args))
	for _, arg := range cmd.Args {
		quoted = append(quoted, psQuote(arg))
	}
	argList := "@()"
	if len(quoted) > 0 {
		argList = strings.Join(quoted, ",")
	}

	outer := fmt.Sprintf(
		"try { $p = Start-Process -FilePath %s -ArgumentList %s -Verb RunAs -Wait -PassThru -WindowStyle Hidden; exit $p.ExitCode } catch { exit %d }",
		psQuote(cmd.Path), argList, uacCancelled,
	)

	shell := e.PowerShell
	if shell == "" {
		shell = "powershell.exe"
	}

	code, stderr, err := e.Runner(ctx, shell, []string{"-NoProfile", "-NonInteractive", "-EncodedCommand", encodePowerShell(outer)}, nil)
	if err != nil {
		if ctx.Err() != nil {
			return kerrors.FromContext(ctx.Err())
		}
		return fmt.Errorf("%w: starting %s: %v", kerrors.ErrElevationDenied, shell, err)
	}

	if code == uacCancelled {
		return fmt.Errorf("%w: the UAC prompt was declined", kerrors.ErrElevationDenied)
	}
	if code != 0 {
		return &ExitError{Code: code, Stderr: stderr}
	}
	return nil
}
