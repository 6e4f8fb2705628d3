package workflows

import (
	"context"
	"fmt"

	"github.com/PolarWolf314/kahu/internal/accounts"
	"github.com/PolarWolf314/kahu/internal/audit"
	kerrors "github.com/PolarWolf314/kahu/internal/errors"
	"github.com/PolarWolf314/kahu/internal/store"
)

// DeleteResult contains the outcome of a delete operation.
type DeleteResult struct {
	SystemAccount string

	// Deprovisioned is true when the account was deleted by this call.
	Deprovisioned bool

	// DeprovisionErr is why the account was left in place, if it was.
	// The profile is removed either way.
	DeprovisionErr error
}

// DeleteProfile deprovisions the profile's system account and removes the
// profile.
//
// Deprovisioning is best effort: when it fails the error is logged and
// returned in the result, and the profile is still removed.
//
// Returns ErrNotFound if no profile is named name.
func (s *Service) DeleteProfile(ctx context.Context, name string) (*DeleteResult, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	profile, err := s.find(ctx, name)
	if err != nil {
		return nil, err
	}
	result := &DeleteResult{SystemAccount: profile.SystemAccount}

	if profile.SystemAccount != "" {
		unlockAccount, err := s.lockAccount(ctx, profile.SystemAccount)
		if err != nil {
			return nil, err
		}
		defer unlockAccount()

		deleted, err := s.prov.Delete(ctx, profile.SystemAccount)
		switch {
		case err != nil:
			s.log.Warnf("Could not delete account %s, removing profile %s anyway: %v", profile.SystemAccount, profile.Name, err)
			result.DeprovisionErr = err
		case deleted == accounts.DidNotExist:
			s.log.Infof("Account %s was already gone", profile.SystemAccount)
		default:
			result.Deprovisioned = true
		}
	}

	// A deprovision that ran out the clock must not keep the profile.
	storeCtx := ctx
	if ctx.Err() != nil {
		var cancelStore context.CancelFunc
		storeCtx, cancelStore = context.WithTimeout(context.WithoutCancel(ctx), s.cfg.LockTimeout)
		defer cancelStore()
	}

	removed, err := s.remove(storeCtx, profile)
	if err != nil {
		return nil, err
	}

	s.audit.Log(audit.Entry{
		Operation:     audit.OpDelete,
		ProfileID:     removed.ID,
		Profile:       removed.Name,
		Account:       removed.SystemAccount,
		Deprovisioned: result.Deprovisioned,
	})
	s.log.Infof("Deleted profile %s", removed.Name)

	return result, nil
}

// find reads without the store lock. The result may be stale by the time a
// mutation acts on it, so mutations check again under the lock.
func (s *Service) find(ctx context.Context, name string) (store.Profile, error) {
	profiles, err := s.load(ctx)
	if err != nil {
		return store.Profile{}, err
	}
	i := store.IndexOf(profiles, name)
	if i < 0 {
		return store.Profile{}, fmt.Errorf("%w: %s", kerrors.ErrNotFound, name)
	}
	return profiles[i], nil
}

// remove deletes the record found earlier by find. It matches on ID, so a
// rename that landed while the account was being deleted does not leave the
// renamed profile behind.
func (s *Service) remove(ctx context.Context, profile store.Profile) (store.Profile, error) {
	unlock, err := s.lockStore(ctx)
	if err != nil {
		return store.Profile{}, err
	}
	defer unlock()

	if profile.ID == "" {
		removed, err := s.store.Delete(ctx, profile.Name)
		if err != nil {
			return store.Profile{}, fmt.Errorf("removing profile: %w", kerrors.FromContext(err))
		}
		if !removed {
			return store.Profile{}, fmt.Errorf("%w: %s", kerrors.ErrNotFound, profile.Name)
		}
		return profile, nil
	}

	removed, ok, err := s.store.DeleteByID(ctx, profile.ID)
	if err != nil {
		return store.Profile{}, fmt.Errorf("removing profile: %w", kerrors.FromContext(err))
	}
	if !ok {
		return store.Profile{}, fmt.Errorf("%w: %s", kerrors.ErrNotFound, profile.Name)
	}
	return removed, nil
}
