package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/PolarWolf314/kahu/internal/configs"
	kerrors "github.com/PolarWolf314/kahu/internal/errors"
	"github.com/PolarWolf314/kahu/internal/ui"
	"github.com/PolarWolf314/kahu/internal/utils"
	"github.com/PolarWolf314/kahu/internal/workflows"
)

// ErrReported is returned once a failure has been shown to the user, so the
// caller only needs to set the exit status.
var ErrReported = errors.New("error already reported")

// newService builds the profile service. Tests replace it.
var newService = workflows.NewDefault

// loadConfig reads config.toml from the kahu home and fills in the host and
// user identity.
func loadConfig() (configs.Config, error) {
	home, err := configs.DefaultHome()
	if err != nil {
		return configs.Config{}, err
	}
	Logger.Debugf("Using kahu home %s", home)

	settings, err := configs.LoadSettings(configs.SettingsPath(home))
	if err != nil {
		return configs.Config{}, err
	}

	id, err := utils.CurrentIdentity()
	if err != nil {
		return configs.Config{}, err
	}

	return settings.Config(home, id.Host, id.User), nil
}

func openService() (*workflows.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, Logger.ErrorfAndReturn("failed to load configuration: %v", err)
	}
	Logger.Debugf("Profile store: %s", cfg.StorePath)

	svc, err := newService(cfg, Logger)
	if err != nil {
		return nil, Logger.ErrorfAndReturn("failed to start profile service: %v", err)
	}
	return svc, nil
}

// startSpinner creates and starts a spinner with the given message when not
// in verbose or debug mode. Returns the spinner and a cleanup function that
// prints FinalMSG to out.
//
// spinner.FinalMSG values do NOT need trailing newlines.
func startSpinner(out io.Writer, message string) (*spinner.Spinner, func()) {
	return newSpinner(out, message, true)
}

// startElevatedSpinner is startSpinner for operations that may ask for the
// administrator password. When that prompt is written to the terminal the
// spinner would draw over it, so the message is printed once instead.
func startElevatedSpinner(svc *workflows.Service, out io.Writer, message string) (*spinner.Spinner, func()) {
	return newSpinner(out, message, !svc.PromptsOnTerminal())
}

func newSpinner(out io.Writer, message string, animate bool) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + message

	// Ignore color errors - continue without colored spinner if it fails.
	_ = s.Color("cyan")

	spinning := false
	switch {
	case verbose || debug:
		Logger.Infof("Running in verbose or debug mode: %s", message)
	case animate:
		s.Start()
		spinning = true
	default:
		fmt.Fprintln(os.Stderr, ui.Arrow()+" "+message)
	}

	cleanup := func() {
		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if spinning {
			s.Stop()
		}

		if finalMsg != "" {
			fmt.Fprint(out, finalMsg)
		}
	}

	return s, cleanup
}

// report turns a service error into the spinner's final message. Errors
// outside the known taxonomy are returned for the caller to print.
func report(s *spinner.Spinner, err error) error {
	msg, known := describe(err)
	if !known {
		return Logger.ErrorfAndReturn("unexpected error: %v", err)
	}

	final := ui.Cross() + " " + msg
	if kerrors.Retryable(err) {
		final += "\n" + ui.Arrow() + " Nothing was changed. Run the command again to retry"
	}
	s.FinalMSG = final
	return ErrReported
}

func describe(err error) (string, bool) {
	switch {
	case kerrors.Is(err, kerrors.ErrElevationDenied):
		return "Administrator permission was not granted " + ui.Muted.Sprint(err.Error()), true
	case kerrors.Is(err, kerrors.ErrBusy):
		return "Another profile operation is still running", true
	case kerrors.Is(err, kerrors.ErrTimeout):
		return "The operation took too long and was stopped", true
	case kerrors.Is(err, kerrors.ErrDuplicateName):
		return "That name is already taken " + ui.Muted.Sprint(err.Error()), true
	case kerrors.Is(err, kerrors.ErrNotFound):
		return "Profile not found " + ui.Muted.Sprint(err.Error()) + "\n" +
			ui.Arrow() + " Run " + ui.Command.Sprint("kahu profiles list") + " to see your profiles", true
	case kerrors.Is(err, kerrors.ErrValidation):
		return capitalize(err.Error()), true
	case kerrors.Is(err, kerrors.ErrProvisionFailed), kerrors.Is(err, kerrors.ErrDeprovisionFailed):
		return capitalize(err.Error()), true
	case kerrors.Is(err, kerrors.ErrUnsupportedPlatform):
		return capitalize(err.Error()), true
	}
	return "", false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// readSecret reads a password from cmd's stdin when fromStdin is set, and
// otherwise prompts on the terminal without echo.
func readSecret(cmd *cobra.Command, fromStdin, confirm bool, prompt string) (string, error) {
	if fromStdin {
		return utils.ReadSecretLine(cmd.InOrStdin())
	}
	if !utils.IsTerminal() {
		return "", fmt.Errorf("stdin is not a terminal; pass the password with --password-stdin")
	}

	var secret []byte
	var err error
	if confirm {
		secret, err = utils.ReadNewPassphrase(prompt)
	} else {
		secret, err = utils.ReadPassphrase(prompt)
	}
	if err != nil {
		return "", err
	}
	return string(secret), nil
}

// confirmAction asks a yes/no question on cmd's streams.
func confirmAction(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	reader := bufio.NewReader(cmd.InOrStdin())
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		Logger.Errorf("Failed to read response: %v", err)
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
