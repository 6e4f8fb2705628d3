package workflows

import (
	"context"
	"fmt"
	"strings"

	"github.com/PolarWolf314/kahu/internal/audit"
	kerrors "github.com/PolarWolf314/kahu/internal/errors"
	"github.com/PolarWolf314/kahu/internal/store"
)

// UpdateRequest configures a profile update. Nil fields are left unchanged.
type UpdateRequest struct {
	// Name selects the profile.
	Name string

	// NewName renames the profile. The system account keeps its name.
	NewName string

	Avatar *string

	// Secret replaces the saved password. It does not change the password
	// of the system account.
	Secret *string

	// ForgetSecret drops the saved password. Ignored when Secret is set.
	ForgetSecret bool
}

// UpdateProfile renames a profile, changes its avatar or replaces its saved
// password.
//
// Returns ErrNotFound if no profile is named req.Name.
// Returns ErrEmptyName or ErrEmptySecret for blank replacements.
// Returns ErrDuplicateName if NewName belongs to another profile.
func (s *Service) UpdateProfile(ctx context.Context, req UpdateRequest) error {
	var newName string
	if req.NewName != "" {
		newName = strings.TrimSpace(req.NewName)
		if newName == "" {
			return kerrors.ErrEmptyName
		}
	}
	if req.Secret != nil && *req.Secret == "" {
		return kerrors.ErrEmptySecret
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	var encrypted string
	if req.Secret != nil {
		var err error
		if encrypted, err = s.encrypt(ctx, *req.Secret); err != nil {
			return err
		}
	}

	unlock, err := s.lockStore(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	profiles, err := s.load(ctx)
	if err != nil {
		return err
	}

	i := store.IndexOf(profiles, req.Name)
	if i < 0 {
		return fmt.Errorf("%w: %s", kerrors.ErrNotFound, req.Name)
	}
	if newName != "" {
		if j := store.IndexOf(profiles, newName); j >= 0 && j != i {
			return fmt.Errorf("%w: %s", kerrors.ErrDuplicateName, newName)
		}
	}

	p := &profiles[i]
	oldName := p.Name
	if newName != "" {
		p.Name = newName
	}
	if req.Avatar != nil {
		p.Avatar = *req.Avatar
	}
	switch {
	case req.Secret != nil:
		p.EncryptedSecret = encrypted
	case req.ForgetSecret:
		p.EncryptedSecret = ""
	}
	p.UpdatedAt = s.now().UTC()

	if err := s.store.Save(ctx, profiles); err != nil {
		return fmt.Errorf("saving profile: %w", kerrors.FromContext(err))
	}

	entry := audit.Entry{
		Operation: audit.OpUpdate,
		ProfileID: p.ID,
		Profile:   p.Name,
		Account:   p.SystemAccount,
	}
	if oldName != p.Name {
		entry.RenamedFrom = oldName
	}
	s.audit.Log(entry)
	s.log.Infof("Updated profile %s", p.Name)

	return nil
}
