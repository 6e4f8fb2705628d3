package accounts

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"runtime"
	"strings"
	"unicode/utf16"

	kerrors "github.com/PolarWolf314/kahu/internal/errors"
)

// planFailureCode is the exit status account scripts use on failure. It is
// chosen so it collides with neither pkexec's 126/127 nor sudo's 1.
const planFailureCode = 3

// Platform account name limits.
const (
	linuxMaxNameLength   = 32
	windowsMaxNameLength = 20
)

// Plan turns account operations into platform commands.
type Plan interface {
	// Sanitize maps a profile name to an account name no longer than max
	// (clamped to the platform limit).
	Sanitize(name string, max int) string
	CreateCommand(account, secret, comment string) (Command, error)
	DeleteCommand(account string) (Command, error)
}

// DefaultPlan returns the plan for the running OS.
func DefaultPlan() (Plan, error) {
	switch runtime.GOOS {
	case "linux":
		return LinuxPlan{}, nil
	case "windows":
		return WindowsPlan{Protect: protectSecret}, nil
	default:
		return nil, fmt.Errorf("%w: %s", kerrors.ErrUnsupportedPlatform, runtime.GOOS)
	}
}

func clamp(max, limit int) int {
	if max <= 0 || max > limit {
		return limit
	}
	return max
}

// LinuxPlan uses shadow-utils. Names are lowercased since useradd rejects
// upper case under the default NAME_REGEX.
type LinuxPlan struct {
	// Shell runs the account scripts; "/bin/sh" when empty.
	Shell string
}

func (p LinuxPlan) shell() string {
	if p.Shell == "" {
		return "/bin/sh"
	}
	return p.Shell
}

func (LinuxPlan) Sanitize(name string, max int) string {
	return strings.ToLower(SanitizeAccountName(name, clamp(max, linuxMaxNameLength)))
}

// Values reach the script as positional parameters, never spliced into it.
const (
	linuxCreateScript = `useradd --create-home --comment "$1" -- "$2" || exit 3
chpasswd || { userdel --remove -- "$2"; exit 4; }`
	linuxDeleteScript = `userdel --remove -- "$1" || exit 3`
)

func (p LinuxPlan) CreateCommand(account, secret, comment string) (Command, error) {
	if strings.ContainsAny(secret, "\r\n\x00") {
		return Command{}, fmt.Errorf("%w: password must not contain line breaks", kerrors.ErrValidation)
	}
	return Command{
		Path:  p.shell(),
		Args:  []string{"-c", linuxCreateScript, "kahu", comment, account},
		Stdin: []byte(account + ":" + secret + "\n"),
	}, nil
}

func (p LinuxPlan) DeleteCommand(account string) (Command, error) {
	return Command{
		Path: p.shell(),
		Args: []string{"-c", linuxDeleteScript, "kahu", account},
	}, nil
}

// WindowsPlan uses the LocalAccounts PowerShell module.
type WindowsPlan struct {
	// Protect converts a password to the DPAPI hex form accepted by
	// ConvertTo-SecureString for the current user.
	Protect func(secret string) (string, error)
}

func (WindowsPlan) Sanitize(name string, max int) string {
	return SanitizeAccountName(name, clamp(max, windowsMaxNameLength))
}

// New-LocalUser limits descriptions to 48 characters.
const windowsMaxDescription = 48

func (p WindowsPlan) CreateCommand(account, secret, comment string) (Command, error) {
	if p.Protect == nil {
		return Command{}, fmt.Errorf("%w: no secret protector configured", kerrors.ErrUnsupportedPlatform)
	}
	protected, err := p.Protect(secret)
	if err != nil {
		return Command{}, fmt.Errorf("protecting password: %w", err)
	}

	if len(comment) > windowsMaxDescription {
		comment = comment[:windowsMaxDescription]
	}

	script := fmt.Sprintf(`$ErrorActionPreference = 'Stop'
try {
  $secret = ConvertTo-SecureString -String %s
  New-LocalUser -Name %s -Password $secret -Description %s | Out-Null
} catch { exit %d }
exit 0`, psQuote(protected), psQuote(account), psQuote(comment), planFailureCode)

	return powerShellCommand(script), nil
}

func (WindowsPlan) DeleteCommand(account string) (Command, error) {
	script := fmt.Sprintf(`$ErrorActionPreference = 'Stop'
try { Remove-LocalUser -Name %s } catch { exit %d }
exit 0`, psQuote(account), planFailureCode)

	return powerShellCommand(script), nil
}

func powerShellCommand(script string) Command {
	return Command{
		Path: "powershell.exe",
		Args: []string{"-NoProfile", "-NonInteractive", "-EncodedCommand", encodePowerShell(script)},
	}
}

// psQuote returns s as a PowerShell single-quoted literal.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// encodePowerShell returns the -EncodedCommand form: base64 of UTF-16LE.
func encodePowerShell(script string) string {
	units := utf16.Encode([]rune(script))
	raw := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(raw[i*2:], u)
	}
	return base64.StdEncoding.EncodeToString(raw)
}
