package store

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/PolarWolf314/kahu/internal/configs"
	kerrors "github.com/PolarWolf314/kahu/internal/errors"
	logger "github.com/PolarWolf314/kahu/internal/logging"
)

// DocumentVersion is the format version written by this package.
const DocumentVersion = 1

type document struct {
	Version  int       `toml:"version"`
	Profiles []Profile `toml:"profiles"`
}

// FileStore keeps profiles in one TOML file.
type FileStore struct {
	path string
	log  logger.Logger
	now  func() time.Time
}

func NewFileStore(path string, log logger.Logger) *FileStore {
	return &FileStore{path: path, log: log, now: time.Now}
}

// Path returns the document location.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns all profiles in document order.
func (s *FileStore) Load(ctx context.Context) ([]Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, kerrors.FromContext(err)
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.log.Debugf("No profile store at %s, starting empty", s.path)
		return []Profile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading profile store: %w", err)
	}

	var doc document
	if _, err := toml.Decode(string(data), &doc); err != nil {
		s.log.Errorf("%v; treating as empty", fmt.Errorf("%w: %v", kerrors.ErrStoreCorrupt, err))
		return []Profile{}, nil
	}
	if doc.Version > DocumentVersion {
		return nil, fmt.Errorf("profile store version %d is newer than supported version %d", doc.Version, DocumentVersion)
	}

	profiles := make([]Profile, 0, len(doc.Profiles))
	for i, p := range doc.Profiles {
		if p.Name == "" {
			s.log.Warnf("Skipping profile entry %d with no name in %s", i, s.path)
			continue
		}
		profiles = append(profiles, p)
	}

	s.log.Debugf("Loaded %d profiles from %s", len(profiles), s.path)
	return profiles, nil
}

// preserveCorrupt moves an unreadable document aside before Save replaces
// it. Only Save calls it, so it runs with the writer's lock held and never
// races a reader.
func (s *FileStore) preserveCorrupt() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading profile store: %w", err)
	}

	var doc document
	if _, err := toml.Decode(string(data), &doc); err == nil {
		return nil
	}

	quarantine := fmt.Sprintf("%s.corrupt-%s", s.path, s.now().UTC().Format("20060102T150405.000000000Z"))
	if err := os.Rename(s.path, quarantine); err != nil {
		return fmt.Errorf("moving corrupt profile store aside: %w", err)
	}
	s.log.Warnf("Replacing corrupt profile store, previous content kept at %s", quarantine)
	return nil
}

// Save atomically replaces the document with profiles.
func (s *FileStore) Save(ctx context.Context, profiles []Profile) error {
	if err := ctx.Err(); err != nil {
		return kerrors.FromContext(err)
	}

	doc := document{Version: DocumentVersion, Profiles: profiles}
	if doc.Profiles == nil {
		doc.Profiles = []Profile{}
	}

	if err := s.preserveCorrupt(); err != nil {
		return err
	}

	if err := configs.SaveTOML(s.path, doc); err != nil {
		return fmt.Errorf("writing profile store: %w", err)
	}

	s.log.Debugf("Saved %d profiles to %s", len(profiles), s.path)
	return nil
}

// Find returns the profile named name.
func (s *FileStore) Find(ctx context.Context, name string) (Profile, bool, error) {
	profiles, err := s.Load(ctx)
	if err != nil {
		return Profile{}, false, err
	}
	if i := IndexOf(profiles, name); i >= 0 {
		return profiles[i], true, nil
	}
	return Profile{}, false, nil
}

// Upsert replaces the profile with the same name, or appends p.
func (s *FileStore) Upsert(ctx context.Context, p Profile) error {
	profiles, err := s.Load(ctx)
	if err != nil {
		return err
	}

	if i := IndexOf(profiles, p.Name); i >= 0 {
		profiles[i] = p
	} else {
		profiles = append(profiles, p)
	}

	return s.Save(ctx, profiles)
}

// Delete removes the profile named name. It reports whether one was removed.
func (s *FileStore) Delete(ctx context.Context, name string) (bool, error) {
	profiles, err := s.Load(ctx)
	if err != nil {
		return false, err
	}

	i := IndexOf(profiles, name)
	if i < 0 {
		return false, nil
	}
	profiles = append(profiles[:i], profiles[i+1:]...)

	return true, s.Save(ctx, profiles)
}

// DeleteByID removes the profile with the given ID and returns it. It
// reports false when no profile has that ID.
func (s *FileStore) DeleteByID(ctx context.Context, id string) (Profile, bool, error) {
	if id == "" {
		return Profile{}, false, nil
	}
	profiles, err := s.Load(ctx)
	if err != nil {
		return Profile{}, false, err
	}

	for i, p := range profiles {
		if p.ID == id {
			profiles = append(profiles[:i], profiles[i+1:]...)
			return p, true, s.Save(ctx, profiles)
		}
	}
	return Profile{}, false, nil
}
