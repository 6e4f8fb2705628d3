package workflows

import (
	"context"
	"fmt"
	"strings"

	"github.com/PolarWolf314/kahu/internal/accounts"
	"github.com/PolarWolf314/kahu/internal/audit"
	kerrors "github.com/PolarWolf314/kahu/internal/errors"
	"github.com/PolarWolf314/kahu/internal/store"
)

// CreateRequest configures profile creation.
type CreateRequest struct {
	Name   string
	Avatar string

	// Secret is the password of the system account. Required.
	Secret string

	// Remember saves Secret, encrypted, with the profile.
	Remember bool
}

// CreateResult contains the outcome of a create operation.
type CreateResult struct {
	// SystemAccount is the sanitized account bound to the profile.
	SystemAccount string

	// AccountCreated is false when an existing account was reused.
	AccountCreated bool
}

// CreateProfile provisions a system account and saves a profile bound to it.
//
// The workflow:
//  1. Checks the name and account are free (store lock)
//  2. Creates the system account, or reuses an existing one (account lock)
//  3. Checks again and saves the profile (account and store lock)
//
// Nothing is saved when provisioning fails. If another call saved the same
// name in the meantime, an account created by this call is deleted again.
//
// Returns ErrEmptyName, ErrEmptySecret or ErrInvalidAccountName for bad input.
// Returns ErrDuplicateName if the name or its account is already in use.
// Returns ErrElevationDenied, ErrProvisionFailed, ErrBusy or ErrTimeout from
// the steps above.
func (s *Service) CreateProfile(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, kerrors.ErrEmptyName
	}
	if req.Secret == "" {
		return nil, kerrors.ErrEmptySecret
	}
	account := s.prov.Sanitize(name)
	if account == "" {
		return nil, kerrors.ErrInvalidAccountName
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.checkAvailable(ctx, name, account); err != nil {
		return nil, err
	}

	var encrypted string
	if req.Remember {
		var err error
		if encrypted, err = s.encrypt(ctx, req.Secret); err != nil {
			return nil, err
		}
	}

	unlockAccount, err := s.lockAccount(ctx, account)
	if err != nil {
		return nil, err
	}
	defer unlockAccount()

	s.log.Debugf("Provisioning account %s for profile %s", account, name)
	provisioned, err := s.prov.Create(ctx, account, req.Secret)
	if err != nil {
		return nil, err
	}
	created := provisioned == accounts.Created

	now := s.now().UTC()
	profile := store.Profile{
		ID:              s.newID(),
		Name:            name,
		Avatar:          req.Avatar,
		SystemAccount:   account,
		EncryptedSecret: encrypted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.saveNew(ctx, profile); err != nil {
		if created {
			s.rollback(ctx, account)
		}
		return nil, err
	}

	s.audit.Log(audit.Entry{
		Operation:      audit.OpCreate,
		ProfileID:      profile.ID,
		Profile:        profile.Name,
		Account:        account,
		AccountCreated: created,
	})
	s.log.Infof("Created profile %s bound to account %s (%s)", name, account, provisioned)

	return &CreateResult{SystemAccount: account, AccountCreated: created}, nil
}

// checkAvailable is the pre-check, done before any side effect.
func (s *Service) checkAvailable(ctx context.Context, name, account string) error {
	unlock, err := s.lockStore(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	profiles, err := s.load(ctx)
	if err != nil {
		return err
	}
	return available(profiles, name, account)
}

func available(profiles []store.Profile, name, account string) error {
	if store.IndexOf(profiles, name) >= 0 {
		return fmt.Errorf("%w: %s", kerrors.ErrDuplicateName, name)
	}
	if i := boundAccount(profiles, account, -1); i >= 0 {
		return fmt.Errorf("%w: account %s is bound to profile %s", kerrors.ErrDuplicateName, account, profiles[i].Name)
	}
	return nil
}

// saveNew verifies uniqueness again and appends profile.
func (s *Service) saveNew(ctx context.Context, profile store.Profile) error {
	unlock, err := s.lockStore(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	profiles, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := available(profiles, profile.Name, profile.SystemAccount); err != nil {
		return err
	}
	if err := s.store.Upsert(ctx, profile); err != nil {
		return fmt.Errorf("saving profile: %w", kerrors.FromContext(err))
	}
	return nil
}

// rollback deletes an account this process just created for a profile that
// could not be saved. It gets a fresh budget since ctx may be what ran out.
func (s *Service) rollback(ctx context.Context, account string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.OperationTimeout)
	defer cancel()

	if _, err := s.prov.Delete(ctx, account); err != nil {
		s.log.Warnf("Could not remove account %s after a failed create: %v", account, err)
		return
	}
	s.log.Infof("Removed account %s after a failed create", account)
}
