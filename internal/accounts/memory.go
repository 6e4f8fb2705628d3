package accounts

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	kerrors "github.com/PolarWolf314/kahu/internal/errors"
)

// MemoryProvisioner keeps accounts in memory. Account names are compared
// case-insensitively, like Windows.
type MemoryProvisioner struct {
	MaxNameLength int

	mu        sync.Mutex
	accounts  map[string]memoryAccount
	createErr error
	deleteErr error
	existsErr error
	delay     time.Duration
	creates   int
	deletes   int
	inFlight  map[string]int
	overlap   map[string]int
}

type memoryAccount struct {
	name   string
	secret string
}

func NewMemoryProvisioner(maxNameLength int) *MemoryProvisioner {
	return &MemoryProvisioner{
		MaxNameLength: maxNameLength,
		accounts:      make(map[string]memoryAccount),
		inFlight:      make(map[string]int),
		overlap:       make(map[string]int),
	}
}

// SetCreateError makes every following Create fail with err (nil clears it).
func (m *MemoryProvisioner) SetCreateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createErr = err
}

// SetDeleteError makes every following Delete of an existing account fail.
func (m *MemoryProvisioner) SetDeleteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteErr = err
}

// SetExistsError makes every following existence query fail.
func (m *MemoryProvisioner) SetExistsError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existsErr = err
}

// SetDelay makes Create and Delete take d, like a privilege prompt
// waiting for the user. The wait honors ctx.
func (m *MemoryProvisioner) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// Add seeds an existing account.
func (m *MemoryProvisioner) Add(account, secret string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[strings.ToLower(account)] = memoryAccount{name: account, secret: secret}
}

// Secret returns the password of account.
func (m *MemoryProvisioner) Secret(account string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[strings.ToLower(account)]
	return a.secret, ok
}

// Accounts returns the account names, sorted.
func (m *MemoryProvisioner) Accounts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.accounts))
	for _, a := range m.accounts {
		names = append(names, a.name)
	}
	sort.Strings(names)
	return names
}

// Calls returns how many Create and Delete calls mutated state.
func (m *MemoryProvisioner) Calls() (creates, deletes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates, m.deletes
}

// MaxOverlap returns the largest number of concurrent Create/Delete calls
// observed for account.
func (m *MemoryProvisioner) MaxOverlap(account string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overlap[strings.ToLower(account)]
}

func (m *MemoryProvisioner) Sanitize(name string) string {
	return SanitizeAccountName(name, m.MaxNameLength)
}

func (m *MemoryProvisioner) Exists(ctx context.Context, name string) (bool, error) {
	account := m.Sanitize(name)
	if account == "" {
		return false, kerrors.ErrInvalidAccountName
	}
	if err := ctx.Err(); err != nil {
		return false, kerrors.FromContext(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, ok := m.accounts[strings.ToLower(account)]
	return ok, nil
}

func (m *MemoryProvisioner) Create(ctx context.Context, name, secret string) (ProvisionResult, error) {
	account := m.Sanitize(name)
	if account == "" {
		return 0, kerrors.ErrInvalidAccountName
	}
	key := strings.ToLower(account)

	done, err := m.enter(ctx, key)
	if err != nil {
		return 0, err
	}
	defer done()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return 0, m.existsErr
	}
	if _, ok := m.accounts[key]; ok {
		return AlreadyExisted, nil
	}
	if m.createErr != nil {
		return 0, m.createErr
	}
	m.accounts[key] = memoryAccount{name: account, secret: secret}
	m.creates++
	return Created, nil
}

func (m *MemoryProvisioner) Delete(ctx context.Context, name string) (DeleteResult, error) {
	account := m.Sanitize(name)
	if account == "" {
		return 0, kerrors.ErrInvalidAccountName
	}
	key := strings.ToLower(account)

	done, err := m.enter(ctx, key)
	if err != nil {
		return 0, err
	}
	defer done()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsErr != nil {
		return 0, m.existsErr
	}
	if _, ok := m.accounts[key]; !ok {
		return DidNotExist, nil
	}
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	delete(m.accounts, key)
	m.deletes++
	return Deleted, nil
}

// enter records an in-flight mutation of key and waits out the configured
// delay. The returned func ends it.
func (m *MemoryProvisioner) enter(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	m.inFlight[key]++
	if m.inFlight[key] > m.overlap[key] {
		m.overlap[key] = m.inFlight[key]
	}
	delay := m.delay
	m.mu.Unlock()

	done := func() {
		m.mu.Lock()
		m.inFlight[key]--
		m.mu.Unlock()
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			done()
			return nil, kerrors.FromContext(ctx.Err())
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		done()
		return nil, kerrors.FromContext(err)
	}
	return done, nil
}
