package workflows

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/PolarWolf314/kahu/internal/accounts"
	"github.com/PolarWolf314/kahu/internal/audit"
	"github.com/PolarWolf314/kahu/internal/configs"
	kerrors "github.com/PolarWolf314/kahu/internal/errors"
	logger "github.com/PolarWolf314/kahu/internal/logging"
	"github.com/PolarWolf314/kahu/internal/store"
	"github.com/PolarWolf314/kahu/internal/vault"
)

// ProfileStore is the persistence the service needs. *store.FileStore
// implements it.
type ProfileStore interface {
	Load(ctx context.Context) ([]store.Profile, error)
	Save(ctx context.Context, profiles []store.Profile) error
	Upsert(ctx context.Context, p store.Profile) error
	Delete(ctx context.Context, name string) (bool, error)
	DeleteByID(ctx context.Context, id string) (store.Profile, bool, error)
}

// Dependencies are the collaborators of a Service. Store, Provisioner and
// Keys are required.
type Dependencies struct {
	Store       ProfileStore
	Provisioner accounts.Provisioner
	Keys        vault.KeySource
	Log         logger.Logger

	// Audit may be nil.
	Audit *audit.Trail

	// Now and NewID default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

// Service implements the profile use cases.
type Service struct {
	cfg   configs.Config
	store ProfileStore
	prov  accounts.Provisioner
	keys  vault.KeySource
	log   logger.Logger
	audit *audit.Trail
	now   func() time.Time
	newID func() string

	storeLock    *semaphore.Weighted
	accountLocks *keyedLocks

	keyMu  sync.Mutex
	cipher *vault.Cipher
}

// New builds a Service from explicit configuration and collaborators.
func New(cfg configs.Config, deps Dependencies) (*Service, error) {
	cfg = cfg.WithDefaults()
	if deps.Store == nil {
		return nil, fmt.Errorf("a profile store is required")
	}
	if deps.Provisioner == nil {
		return nil, fmt.Errorf("an account provisioner is required")
	}
	if deps.Keys == nil {
		return nil, fmt.Errorf("a key source is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}

	return &Service{
		cfg:          cfg,
		store:        deps.Store,
		prov:         deps.Provisioner,
		keys:         deps.Keys,
		log:          deps.Log,
		audit:        deps.Audit,
		now:          deps.Now,
		newID:        deps.NewID,
		storeLock:    semaphore.NewWeighted(1),
		accountLocks: newKeyedLocks(),
	}, nil
}

// NewDefault wires the file store, the OS provisioner, the configured key
// backend and the audit trail.
func NewDefault(cfg configs.Config, log logger.Logger) (*Service, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	keys, err := NewKeySource(cfg)
	if err != nil {
		return nil, err
	}
	prov, err := accounts.NewOSProvisioner(cfg, log)
	if err != nil {
		return nil, err
	}

	return New(cfg, Dependencies{
		Store:       store.NewFileStore(cfg.StorePath, log),
		Provisioner: prov,
		Keys:        keys,
		Log:         log,
		Audit:       audit.New(cfg.AuditPath),
	})
}

// NewKeySource returns the key backend selected by cfg.
func NewKeySource(cfg configs.Config) (vault.KeySource, error) {
	switch cfg.KeyBackend {
	case configs.KeyBackendKeyring:
		ring, err := vault.OpenKeyring(cfg.KeyringService)
		if err != nil {
			return nil, err
		}
		return vault.KeyringKeySource{Ring: ring}, nil
	case configs.KeyBackendDerived, "":
		return vault.DerivedKeySource{Host: cfg.HostIdentity, User: cfg.UserIdentity}, nil
	default:
		return nil, fmt.Errorf("unknown key backend %q", cfg.KeyBackend)
	}
}

// bound applies the operation timeout to ctx.
// PromptsOnTerminal reports whether provisioning asks for the administrator
// password on the terminal, as sudo does.
func (s *Service) PromptsOnTerminal() bool {
	return accounts.PromptsOnTerminal(s.prov)
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.OperationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.OperationTimeout)
}

// lockStore enters the store critical section.
func (s *Service) lockStore(ctx context.Context) (func(), error) {
	if err := acquire(ctx, s.storeLock, s.cfg.LockTimeout); err != nil {
		return nil, err
	}
	return func() { s.storeLock.Release(1) }, nil
}

func (s *Service) lockAccount(ctx context.Context, account string) (func(), error) {
	return s.accountLocks.acquire(ctx, account, s.cfg.LockTimeout)
}

// getCipher resolves the key once per Service.
func (s *Service) getCipher(ctx context.Context) (*vault.Cipher, error) {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()

	if s.cipher != nil {
		return s.cipher, nil
	}
	key, err := s.keys.Key(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading profile key: %w", err)
	}
	s.cipher = vault.NewCipher(key)
	return s.cipher, nil
}

func (s *Service) encrypt(ctx context.Context, secret string) (string, error) {
	c, err := s.getCipher(ctx)
	if err != nil {
		return "", err
	}
	blob, err := c.Encrypt(secret)
	if err != nil {
		return "", fmt.Errorf("encrypting password: %w", err)
	}
	return blob.String(), nil
}

// load reads the store and maps context expiry to ErrTimeout.
func (s *Service) load(ctx context.Context) ([]store.Profile, error) {
	profiles, err := s.store.Load(ctx)
	if err != nil {
		return nil, kerrors.FromContext(err)
	}
	return profiles, nil
}

// boundAccount reports the index of the profile other than skip bound to
// account, or -1.
func boundAccount(profiles []store.Profile, account string, skip int) int {
	for i, p := range profiles {
		if i != skip && p.SystemAccount != "" && store.SameName(p.SystemAccount, account) {
			return i
		}
	}
	return -1
}
