package workflows

import (
	"context"
)

// ProfileSummary is the metadata of a profile safe to show anywhere.
type ProfileSummary struct {
	Name          string
	Avatar        string
	SystemAccount string
	HasSecret     bool
}

// ListProfiles returns every profile in store order. Saved secrets are
// reported only as HasSecret.
//
// Reads take no lock; the store never exposes a partial document.
func (s *Service) ListProfiles(ctx context.Context) ([]ProfileSummary, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	profiles, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]ProfileSummary, 0, len(profiles))
	for _, p := range profiles {
		summaries = append(summaries, ProfileSummary{
			Name:          p.Name,
			Avatar:        p.Avatar,
			SystemAccount: p.SystemAccount,
			HasSecret:     p.HasSecret(),
		})
	}
	return summaries, nil
}
