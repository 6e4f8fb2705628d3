package workflows

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PolarWolf314/kahu/internal/accounts"
	"github.com/PolarWolf314/kahu/internal/audit"
	"github.com/PolarWolf314/kahu/internal/configs"
	kerrors "github.com/PolarWolf314/kahu/internal/errors"
	logger "github.com/PolarWolf314/kahu/internal/logging"
	"github.com/PolarWolf314/kahu/internal/store"
	"github.com/PolarWolf314/kahu/internal/vault"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testEnv struct {
	svc   *Service
	cfg   configs.Config
	prov  *accounts.MemoryProvisioner
	store *store.FileStore
	trail *audit.Trail
	logs  *syncBuffer
}

func newTestEnv(t *testing.T, tweak ...func(*configs.Config)) *testEnv {
	t.Helper()
	color.NoColor = true

	home := t.TempDir()
	cfg := configs.Default(home)
	cfg.HostIdentity = "test-host"
	cfg.UserIdentity = "test-user"
	for _, f := range tweak {
		f(&cfg)
	}

	logs := &syncBuffer{}
	log := logger.Logger{Out: logs, Err: logs}
	env := &testEnv{
		cfg:   cfg,
		prov:  accounts.NewMemoryProvisioner(cfg.MaxAccountNameLength),
		store: store.NewFileStore(cfg.StorePath, log),
		trail: audit.New(cfg.AuditPath),
		logs:  logs,
	}
	env.svc = env.newService(t, env.prov)
	return env
}

func (e *testEnv) newService(t *testing.T, prov accounts.Provisioner) *Service {
	t.Helper()
	keys, err := NewKeySource(e.cfg)
	require.NoError(t, err)

	svc, err := New(e.cfg, Dependencies{
		Store:       e.store,
		Provisioner: prov,
		Keys:        keys,
		Log:         logger.Logger{Out: e.logs, Err: e.logs},
		Audit:       e.trail,
	})
	require.NoError(t, err)
	return svc
}

func (e *testEnv) create(t *testing.T, name, secret string, remember bool) *CreateResult {
	t.Helper()
	res, err := e.svc.CreateProfile(context.Background(), CreateRequest{Name: name, Secret: secret, Remember: remember})
	require.NoError(t, err)
	return res
}

func (e *testEnv) list(t *testing.T) []ProfileSummary {
	t.Helper()
	profiles, err := e.svc.ListProfiles(context.Background())
	require.NoError(t, err)
	return profiles
}

func TestNewRequiresCollaborators(t *testing.T) {
	cfg := configs.Default(t.TempDir())

	_, err := New(cfg, Dependencies{})
	assert.Error(t, err)

	_, err = New(cfg, Dependencies{Store: store.NewFileStore(cfg.StorePath, logger.Discard())})
	assert.Error(t, err)
}

func TestListEmpty(t *testing.T) {
	env := newTestEnv(t)

	assert.Empty(t, env.list(t))
}

func TestCreateRememberedProfile(t *testing.T) {
	env := newTestEnv(t)

	res := env.create(t, "Main Account", "hunter2-secret", true)
	assert.Equal(t, "Main_Account", res.SystemAccount)
	assert.True(t, res.AccountCreated)

	profiles := env.list(t)
	require.Len(t, profiles, 1)
	assert.Equal(t, ProfileSummary{Name: "Main Account", SystemAccount: "Main_Account", HasSecret: true}, profiles[0])

	data, err := os.ReadFile(env.cfg.StorePath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2-secret")

	secret, ok := env.prov.Secret("Main_Account")
	require.True(t, ok)
	assert.Equal(t, "hunter2-secret", secret)
}

func TestCreateWithoutRemember(t *testing.T) {
	env := newTestEnv(t)

	env.create(t, "Guest", "s", false)

	profiles := env.list(t)
	require.Len(t, profiles, 1)
	assert.False(t, profiles[0].HasSecret)

	creds, err := env.svc.Credentials(context.Background(), "guest")
	require.NoError(t, err)
	assert.Equal(t, "Guest", creds.SystemAccount)
	assert.False(t, creds.HasSecret)
	assert.Empty(t, creds.Secret)
}

func TestCreateDuplicateNameIgnoresCase(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "Bob", "s", true)

	_, err := env.svc.CreateProfile(context.Background(), CreateRequest{Name: "bob", Secret: "s"})
	assert.ErrorIs(t, err, kerrors.ErrDuplicateName)
	assert.ErrorIs(t, err, kerrors.ErrValidation)

	creates, _ := env.prov.Calls()
	assert.Equal(t, 1, creates)
	assert.Len(t, env.list(t), 1)
}

func TestCreateRejectsAccountBoundToAnotherProfile(t *testing.T) {
	env := newTestEnv(t, func(c *configs.Config) { c.MaxAccountNameLength = 5 })
	env.create(t, "Alpha One", "s", false)

	_, err := env.svc.CreateProfile(context.Background(), CreateRequest{Name: "Alpha Two", Secret: "s"})
	assert.ErrorIs(t, err, kerrors.ErrDuplicateName)
	assert.Equal(t, []string{"Alpha"}, env.prov.Accounts())
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"EmptyName", CreateRequest{Name: "  ", Secret: "s"}, kerrors.ErrEmptyName},
		{"EmptySecret", CreateRequest{Name: "Bob"}, kerrors.ErrEmptySecret},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)

			_, err := env.svc.CreateProfile(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, kerrors.ErrValidation)
			assert.Empty(t, env.prov.Accounts())
			assert.Empty(t, env.list(t))
		})
	}
}

func TestCreateReusesExistingAccount(t *testing.T) {
	env := newTestEnv(t)
	env.prov.Add("Bob", "original")

	res := env.create(t, "Bob", "new-password", true)
	assert.False(t, res.AccountCreated)

	secret, _ := env.prov.Secret("Bob")
	assert.Equal(t, "original", secret)
}

func TestCreateProvisionFailureSavesNothing(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"Denied", kerrors.ErrElevationDenied},
		{"Failed", kerrors.ErrProvisionFailed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.prov.SetCreateError(tc.err)

			_, err := env.svc.CreateProfile(context.Background(), CreateRequest{Name: "Bob", Secret: "s", Remember: true})
			assert.ErrorIs(t, err, tc.err)
			assert.Empty(t, env.list(t))

			entries, err := env.trail.ReadEntries()
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}

	assert.True(t, kerrors.Retryable(kerrors.ErrElevationDenied))
	assert.False(t, kerrors.Retryable(kerrors.ErrProvisionFailed))
}

// racingProvisioner saves a conflicting profile while the account is being
// created, as a second process would.
type racingProvisioner struct {
	*accounts.MemoryProvisioner
	onCreate func()
}

func (r *racingProvisioner) Create(ctx context.Context, name, secret string) (accounts.ProvisionResult, error) {
	res, err := r.MemoryProvisioner.Create(ctx, name, secret)
	r.onCreate()
	return res, err
}

func TestCreateLostRaceRollsBackNewAccount(t *testing.T) {
	env := newTestEnv(t)
	racing := &racingProvisioner{
		MemoryProvisioner: env.prov,
		onCreate: func() {
			require.NoError(t, env.store.Upsert(context.Background(), store.Profile{ID: "other", Name: "BOB"}))
		},
	}
	svc := env.newService(t, racing)

	_, err := svc.CreateProfile(context.Background(), CreateRequest{Name: "Bob", Secret: "s"})
	assert.ErrorIs(t, err, kerrors.ErrDuplicateName)
	assert.Empty(t, env.prov.Accounts())

	profiles := env.list(t)
	require.Len(t, profiles, 1)
	assert.Equal(t, "BOB", profiles[0].Name)
}

func TestCreateLostRaceKeepsReusedAccount(t *testing.T) {
	env := newTestEnv(t)
	env.prov.Add("Bob", "original")
	racing := &racingProvisioner{
		MemoryProvisioner: env.prov,
		onCreate: func() {
			require.NoError(t, env.store.Upsert(context.Background(), store.Profile{ID: "other", Name: "bob"}))
		},
	}
	svc := env.newService(t, racing)

	_, err := svc.CreateProfile(context.Background(), CreateRequest{Name: "Bob", Secret: "s"})
	assert.ErrorIs(t, err, kerrors.ErrDuplicateName)
	assert.Equal(t, []string{"Bob"}, env.prov.Accounts())
}

func TestConcurrentCreateSameName(t *testing.T) {
	env := newTestEnv(t)
	env.prov.SetDelay(20 * time.Millisecond)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.CreateProfile(context.Background(), CreateRequest{Name: "Bob", Secret: "s"})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, kerrors.ErrDuplicateName) || errors.Is(err, kerrors.ErrBusy), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, env.list(t), 1)
	assert.Equal(t, 1, env.prov.MaxOverlap("Bob"))
	assert.Zero(t, env.svc.accountLocks.len())
}

func TestConcurrentCreateDistinctNames(t *testing.T) {
	env := newTestEnv(t)

	names := []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo"}
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_, err := env.svc.CreateProfile(context.Background(), CreateRequest{Name: name, Secret: "s", Remember: true})
			assert.NoError(t, err)
		}(name)
	}
	wg.Wait()

	assert.Len(t, env.list(t), len(names))
	assert.Equal(t, names, env.prov.Accounts())
}

func TestMutationWhileStoreLockedIsBusy(t *testing.T) {
	env := newTestEnv(t, func(c *configs.Config) { c.LockTimeout = 20 * time.Millisecond })
	require.NoError(t, env.svc.storeLock.Acquire(context.Background(), 1))
	defer env.svc.storeLock.Release(1)

	_, err := env.svc.CreateProfile(context.Background(), CreateRequest{Name: "Bob", Secret: "s"})
	assert.ErrorIs(t, err, kerrors.ErrBusy)
	assert.True(t, kerrors.Retryable(err))
	assert.Empty(t, env.prov.Accounts())

	err = env.svc.UpdateProfile(context.Background(), UpdateRequest{Name: "Bob", NewName: "Rob"})
	assert.ErrorIs(t, err, kerrors.ErrBusy)

	// Reads do not wait for the lock.
	assert.Empty(t, env.list(t))
}

func TestCreateTimesOutDuringProvisioning(t *testing.T) {
	env := newTestEnv(t, func(c *configs.Config) { c.OperationTimeout = 30 * time.Millisecond })
	env.prov.SetDelay(time.Second)

	_, err := env.svc.CreateProfile(context.Background(), CreateRequest{Name: "Bob", Secret: "s"})
	assert.ErrorIs(t, err, kerrors.ErrTimeout)
	assert.True(t, kerrors.Retryable(err))
	assert.Empty(t, env.list(t))
}

func TestCreateHonorsCallerCancellation(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.svc.CreateProfile(ctx, CreateRequest{Name: "Bob", Secret: "s"})
	assert.ErrorIs(t, err, kerrors.ErrTimeout)
}

func TestRenamePreservesAccount(t *testing.T) {
	env := newTestEnv(t)
	before := env.create(t, "X", "s", true)

	err := env.svc.UpdateProfile(context.Background(), UpdateRequest{Name: "x", NewName: "Y"})
	require.NoError(t, err)

	profiles := env.list(t)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Y", profiles[0].Name)
	assert.Equal(t, before.SystemAccount, profiles[0].SystemAccount)
	assert.True(t, profiles[0].HasSecret)
	assert.Equal(t, []string{"X"}, env.prov.Accounts())

	creds, err := env.svc.Credentials(context.Background(), "Y")
	require.NoError(t, err)
	assert.Equal(t, "s", creds.Secret)
}

func TestRenameCaseOnly(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "bob", "s", false)

	require.NoError(t, env.svc.UpdateProfile(context.Background(), UpdateRequest{Name: "bob", NewName: "Bob"}))
	assert.Equal(t, "Bob", env.list(t)[0].Name)
}

func TestUpdateErrors(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "Alpha", "s", false)
	env.create(t, "Bravo", "s", false)
	empty := ""

	err := env.svc.UpdateProfile(context.Background(), UpdateRequest{Name: "Missing", NewName: "X"})
	assert.ErrorIs(t, err, kerrors.ErrNotFound)

	err = env.svc.UpdateProfile(context.Background(), UpdateRequest{Name: "Alpha", NewName: "BRAVO"})
	assert.ErrorIs(t, err, kerrors.ErrDuplicateName)

	err = env.svc.UpdateProfile(context.Background(), UpdateRequest{Name: "Alpha", NewName: "   "})
	assert.ErrorIs(t, err, kerrors.ErrEmptyName)

	err = env.svc.UpdateProfile(context.Background(), UpdateRequest{Name: "Alpha", Secret: &empty})
	assert.ErrorIs(t, err, kerrors.ErrEmptySecret)

	names := []string{}
	for _, p := range env.list(t) {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Alpha", "Bravo"}, names)
}

func TestUpdateSecretAndAvatar(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "Bob", "old", true)
	avatar := "avatars/bob.png"
	secret := "new"

	require.NoError(t, env.svc.UpdateProfile(context.Background(), UpdateRequest{Name: "Bob", Avatar: &avatar}))
	creds, err := env.svc.Credentials(context.Background(), "Bob")
	require.NoError(t, err)
	assert.Equal(t, "old", creds.Secret, "absent secret leaves the saved one untouched")
	assert.Equal(t, avatar, env.list(t)[0].Avatar)

	require.NoError(t, env.svc.UpdateProfile(context.Background(), UpdateRequest{Name: "Bob", Secret: &secret}))
	creds, err = env.svc.Credentials(context.Background(), "Bob")
	require.NoError(t, err)
	assert.Equal(t, "new", creds.Secret)

	acctSecret, _ := env.prov.Secret("Bob")
	assert.Equal(t, "old", acctSecret)

	require.NoError(t, env.svc.UpdateProfile(context.Background(), UpdateRequest{Name: "Bob", ForgetSecret: true}))
	assert.False(t, env.list(t)[0].HasSecret)
}

func TestUpdateKeepsCreatedAt(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "Bob", "s", false)
	before, _, err := env.store.Find(context.Background(), "Bob")
	require.NoError(t, err)

	require.NoError(t, env.svc.UpdateProfile(context.Background(), UpdateRequest{Name: "Bob", NewName: "Rob"}))

	after, ok, err := env.store.Find(context.Background(), "Rob")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, before.ID, after.ID)
	assert.True(t, before.CreatedAt.Equal(after.CreatedAt))
	assert.False(t, after.UpdatedAt.Before(before.UpdatedAt))
}

func TestDeleteProfile(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "Bob", "s", true)

	res, err := env.svc.DeleteProfile(context.Background(), "BOB")
	require.NoError(t, err)
	assert.Equal(t, "Bob", res.SystemAccount)
	assert.True(t, res.Deprovisioned)
	assert.NoError(t, res.DeprovisionErr)

	assert.Empty(t, env.list(t))
	assert.Empty(t, env.prov.Accounts())

	_, err = env.svc.DeleteProfile(context.Background(), "Bob")
	assert.ErrorIs(t, err, kerrors.ErrNotFound)
}

func TestDeleteWithAccountAlreadyGone(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "Bob", "s", false)
	_, err := env.prov.Delete(context.Background(), "Bob")
	require.NoError(t, err)

	res, err := env.svc.DeleteProfile(context.Background(), "Bob")
	require.NoError(t, err)
	assert.False(t, res.Deprovisioned)
	assert.NoError(t, res.DeprovisionErr)
	assert.Empty(t, env.list(t))
}

func TestDeleteDespiteDeprovisionFailure(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "Bob", "s", false)
	env.prov.SetDeleteError(kerrors.ErrDeprovisionFailed)

	res, err := env.svc.DeleteProfile(context.Background(), "Bob")
	require.NoError(t, err)
	assert.False(t, res.Deprovisioned)
	assert.ErrorIs(t, res.DeprovisionErr, kerrors.ErrDeprovisionFailed)

	assert.Empty(t, env.list(t))
	assert.Equal(t, []string{"Bob"}, env.prov.Accounts())
	assert.Contains(t, env.logs.String(), "Could not delete account Bob")
}

func TestDeleteDespiteDeprovisionTimeout(t *testing.T) {
	env := newTestEnv(t, func(c *configs.Config) { c.OperationTimeout = 30 * time.Millisecond })
	env.create(t, "Bob", "s", false)
	env.prov.SetDelay(time.Second)

	res, err := env.svc.DeleteProfile(context.Background(), "Bob")
	require.NoError(t, err)
	assert.ErrorIs(t, res.DeprovisionErr, kerrors.ErrTimeout)
	assert.Empty(t, env.list(t))
}

func TestDeleteRemovesProfileRenamedDuringDeprovision(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "Bob", "s", false)
	env.prov.SetDelay(200 * time.Millisecond)

	type outcome struct {
		res *DeleteResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := env.svc.DeleteProfile(context.Background(), "Bob")
		done <- outcome{res, err}
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, env.svc.UpdateProfile(context.Background(), UpdateRequest{Name: "Bob", NewName: "Rob"}))

	out := <-done
	require.NoError(t, out.err)
	assert.True(t, out.res.Deprovisioned)
	assert.Empty(t, env.list(t))
	assert.Empty(t, env.prov.Accounts())

	entries, err := env.trail.ReadEntries()
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.Equal(t, audit.OpDelete, last.Operation)
	assert.Equal(t, "Rob", last.Profile)
}

func TestCredentialsIgnoresUndecryptableSecret(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "Bob", "s", true)

	profiles, err := env.store.Load(context.Background())
	require.NoError(t, err)
	blob, err := vault.ParseCiphertext(profiles[0].EncryptedSecret)
	require.NoError(t, err)
	blob[len(blob)-1] ^= 0xff
	profiles[0].EncryptedSecret = blob.String()
	require.NoError(t, env.store.Save(context.Background(), profiles))

	creds, err := env.svc.Credentials(context.Background(), "Bob")
	require.NoError(t, err)
	assert.False(t, creds.HasSecret)
	assert.Empty(t, creds.Secret)
	assert.Contains(t, env.logs.String(), "unreadable")
}

func TestCredentialsFromAnotherUserHasNoSecret(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "Bob", "s", true)

	env.cfg.UserIdentity = "someone-else"
	other := env.newService(t, env.prov)

	creds, err := other.Credentials(context.Background(), "Bob")
	require.NoError(t, err)
	assert.False(t, creds.HasSecret)

	// The saved blob is still reported as present.
	profiles, err := other.ListProfiles(context.Background())
	require.NoError(t, err)
	assert.True(t, profiles[0].HasSecret)
}

func TestCredentialsNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Credentials(context.Background(), "Bob")
	assert.ErrorIs(t, err, kerrors.ErrNotFound)
}

func TestAuditTrail(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "Bob", "hunter2-secret", true)
	require.NoError(t, env.svc.UpdateProfile(context.Background(), UpdateRequest{Name: "Bob", NewName: "Rob"}))
	_, err := env.svc.DeleteProfile(context.Background(), "Rob")
	require.NoError(t, err)

	entries, err := env.trail.ReadEntries()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, audit.OpCreate, entries[0].Operation)
	assert.True(t, entries[0].AccountCreated)
	assert.NotEmpty(t, entries[0].ProfileID)
	assert.Equal(t, audit.OpUpdate, entries[1].Operation)
	assert.Equal(t, "Bob", entries[1].RenamedFrom)
	assert.Equal(t, entries[0].ProfileID, entries[1].ProfileID)
	assert.Equal(t, audit.OpDelete, entries[2].Operation)
	assert.True(t, entries[2].Deprovisioned)

	data, err := os.ReadFile(env.trail.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2-secret")
}

func TestNewKeySource(t *testing.T) {
	cfg := configs.Default(t.TempDir())
	cfg.HostIdentity = "h"
	cfg.UserIdentity = "u"

	keys, err := NewKeySource(cfg)
	require.NoError(t, err)
	assert.IsType(t, vault.DerivedKeySource{}, keys)

	cfg.KeyBackend = "plaintext"
	_, err = NewKeySource(cfg)
	assert.Error(t, err)
}

func TestNewDefaultRejectsInvalidConfig(t *testing.T) {
	cfg := configs.Default(filepath.Join(t.TempDir(), "home"))

	_, err := NewDefault(cfg, logger.Discard())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "identity"))
}
