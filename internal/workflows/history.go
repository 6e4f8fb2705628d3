package workflows

import (
	"context"
	"fmt"
	"strings"

	"github.com/PolarWolf314/kahu/internal/audit"
	kerrors "github.com/PolarWolf314/kahu/internal/errors"
)

// HistoryOptions filters the audit history.
type HistoryOptions struct {
	// Profile keeps entries for this profile, matched case-insensitively
	// against both the name and the name it was renamed from.
	Profile string

	// Operations keeps only these operations. Empty keeps all.
	Operations []string

	// Limit keeps the most recent entries. Zero keeps all.
	Limit int

	// Reverse lists the most recent entry first.
	Reverse bool
}

// History returns the recorded profile operations, oldest first unless
// opts.Reverse is set. A disabled or missing audit log is an empty history.
func (s *Service) History(ctx context.Context, opts HistoryOptions) ([]audit.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, kerrors.FromContext(err)
	}

	entries, err := s.audit.ReadEntries()
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}

	filtered := make([]audit.Entry, 0, len(entries))
	for _, e := range entries {
		if opts.Profile != "" && !strings.EqualFold(e.Profile, opts.Profile) && !strings.EqualFold(e.RenamedFrom, opts.Profile) {
			continue
		}
		if len(opts.Operations) > 0 && !containsFold(opts.Operations, e.Operation) {
			continue
		}
		filtered = append(filtered, e)
	}

	if opts.Limit > 0 && len(filtered) > opts.Limit {
		filtered = filtered[len(filtered)-opts.Limit:]
	}
	if opts.Reverse {
		for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		}
	}
	return filtered, nil
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(strings.TrimSpace(candidate), v) {
			return true
		}
	}
	return false
}
