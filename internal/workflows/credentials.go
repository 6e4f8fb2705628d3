package workflows

import (
	"context"
)

// Credentials is what a launcher needs to start a program as a profile's
// account.
type Credentials struct {
	Profile       string
	SystemAccount string

	// Secret is the saved password, valid only when HasSecret is set.
	Secret    string
	HasSecret bool
}

// Credentials returns the account and saved password of a profile. A saved
// password that cannot be decrypted is logged and reported as absent.
//
// Returns ErrNotFound if no profile is named name.
func (s *Service) Credentials(ctx context.Context, name string) (*Credentials, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	profile, err := s.find(ctx, name)
	if err != nil {
		return nil, err
	}

	creds := &Credentials{Profile: profile.Name, SystemAccount: profile.SystemAccount}
	if !profile.HasSecret() {
		return creds, nil
	}

	c, err := s.getCipher(ctx)
	if err != nil {
		s.log.Warnf("Saved password of %s is unavailable: %v", profile.Name, err)
		return creds, nil
	}
	secret, err := c.DecryptString(profile.EncryptedSecret)
	if err != nil {
		s.log.Warnf("Saved password of %s is unreadable and will be ignored: %v", profile.Name, err)
		return creds, nil
	}

	creds.Secret = secret
	creds.HasSecret = true
	return creds, nil
}
