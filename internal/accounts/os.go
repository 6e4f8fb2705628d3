package accounts

import (
	"context"
	"errors"
	"fmt"
	"os/user"

	"github.com/PolarWolf314/kahu/internal/configs"
	kerrors "github.com/PolarWolf314/kahu/internal/errors"
	logger "github.com/PolarWolf314/kahu/internal/logging"
)

// LookupFunc reports whether an account exists by asking the OS.
type LookupFunc func(account string) (bool, error)

// LookupAccount queries the local account database.
func LookupAccount(account string) (bool, error) {
	_, err := user.Lookup(account)
	if err == nil {
		return true, nil
	}
	var unknown user.UnknownUserError
	if errors.As(err, &unknown) {
		return false, nil
	}
	return false, err
}

// OSProvisioner manages real OS accounts.
type OSProvisioner struct {
	Plan          Plan
	Elevator      Elevator
	Lookup        LookupFunc
	MaxNameLength int
	Comment       string
	Log           logger.Logger
}

// NewOSProvisioner builds the provisioner for the running platform.
func NewOSProvisioner(cfg configs.Config, log logger.Logger) (*OSProvisioner, error) {
	plan, err := DefaultPlan()
	if err != nil {
		return nil, err
	}
	elevator, err := DefaultElevator(cfg.ElevationTool)
	if err != nil {
		return nil, err
	}
	return &OSProvisioner{
		Plan:          plan,
		Elevator:      elevator,
		Lookup:        LookupAccount,
		MaxNameLength: cfg.MaxAccountNameLength,
		Comment:       cfg.AccountComment,
		Log:           log,
	}, nil
}

func (p *OSProvisioner) PromptsOnTerminal() bool {
	return PromptsOnTerminal(p.Elevator)
}

func (p *OSProvisioner) Sanitize(name string) string {
	return p.Plan.Sanitize(name, p.MaxNameLength)
}

func (p *OSProvisioner) account(name string) (string, error) {
	account := p.Sanitize(name)
	if account == "" {
		return "", kerrors.ErrInvalidAccountName
	}
	return account, nil
}

// Exists runs the lookup off the caller's goroutine so a hung name service
// cannot outlive ctx.
func (p *OSProvisioner) Exists(ctx context.Context, name string) (bool, error) {
	account, err := p.account(name)
	if err != nil {
		return false, err
	}
	return p.exists(ctx, account)
}

func (p *OSProvisioner) exists(ctx context.Context, account string) (bool, error) {
	type result struct {
		ok  bool
		err error
	}
	done := make(chan result, 1)
	go func() {
		ok, err := p.Lookup(account)
		done <- result{ok, err}
	}()

	select {
	case <-ctx.Done():
		return false, kerrors.FromContext(ctx.Err())
	case r := <-done:
		if r.err != nil {
			return false, fmt.Errorf("looking up account %s: %w", account, r.err)
		}
		return r.ok, nil
	}
}

func (p *OSProvisioner) Create(ctx context.Context, name, secret string) (ProvisionResult, error) {
	account, err := p.account(name)
	if err != nil {
		return 0, err
	}

	exists, err := p.exists(ctx, account)
	if err != nil {
		return 0, err
	}
	if exists {
		p.Log.Infof("Account %s already exists, leaving it unchanged", account)
		return AlreadyExisted, nil
	}

	cmd, err := p.Plan.CreateCommand(account, secret, p.Comment)
	if err != nil {
		return 0, err
	}

	p.Log.Debugf("Creating account %s with elevation: %s", account, cmd.Path)
	if err := p.Elevator.Run(ctx, cmd); err != nil {
		return 0, classify(err, kerrors.ErrProvisionFailed, account)
	}

	p.Log.Infof("Created account %s", account)
	return Created, nil
}

func (p *OSProvisioner) Delete(ctx context.Context, name string) (DeleteResult, error) {
	account, err := p.account(name)
	if err != nil {
		return 0, err
	}

	exists, err := p.exists(ctx, account)
	if err != nil {
		return 0, err
	}
	if !exists {
		return DidNotExist, nil
	}

	cmd, err := p.Plan.DeleteCommand(account)
	if err != nil {
		return 0, err
	}

	p.Log.Debugf("Deleting account %s with elevation: %s", account, cmd.Path)
	if err := p.Elevator.Run(ctx, cmd); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			// userdel reports failure when only the home directory could not
			// be removed. The account itself is what counts.
			if gone, lookupErr := p.exists(ctx, account); lookupErr == nil && !gone {
				p.Log.Warnf("Account %s was deleted but cleanup reported: %v", account, exitErr)
				return Deleted, nil
			}
		}
		return 0, classify(err, kerrors.ErrDeprovisionFailed, account)
	}

	p.Log.Infof("Deleted account %s", account)
	return Deleted, nil
}

// classify keeps elevation and timeout errors and folds everything else into
// failure.
func classify(err, failure error, account string) error {
	if errors.Is(err, kerrors.ErrElevationDenied) || errors.Is(err, kerrors.ErrTimeout) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", failure, account, err)
}
