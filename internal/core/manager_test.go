package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/receiptvault/internal/crypto"
	"github.com/illarion/receiptvault/internal/interchange"
	"github.com/illarion/receiptvault/internal/ledger"
	"github.com/illarion/receiptvault/internal/ocr"
	"github.com/illarion/receiptvault/internal/storage"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// faultyStore lets a test make the underlying store fail on demand
type faultyStore struct {
	VaultStore
	failSave error
	failLoad error
	saves    int
}

func (f *faultyStore) SaveVault(r *storage.Record) error {
	if f.failSave != nil {
		return f.failSave
	}
	f.saves++
	return f.VaultStore.SaveVault(r)
}

func (f *faultyStore) LoadVault() (*storage.Record, error) {
	if f.failLoad != nil {
		return nil, f.failLoad
	}
	return f.VaultStore.LoadVault()
}

func openStore(t *testing.T, path string) *storage.Storage {
	t.Helper()
	db, err := storage.Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Initialize())
	return db
}

func newTestStore(t *testing.T) *faultyStore {
	t.Helper()
	db := openStore(t, filepath.Join(t.TempDir(), "vault.db"))
	t.Cleanup(func() { db.Close() })
	return &faultyStore{VaultStore: db}
}

func newTestManager(t *testing.T, store VaultStore) (*Manager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: testNow}
	n := 0
	var idMu sync.Mutex
	m := New(store,
		WithClock(clock.Now),
		WithIDGenerator(func() string {
			idMu.Lock()
			defer idMu.Unlock()
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
	return m, clock
}

func unlocked(t *testing.T, store VaultStore, passphrase string) (*Manager, *fakeClock) {
	t.Helper()
	m, clock := newTestManager(t, store)
	require.NoError(t, m.Unlock(context.Background(), []byte(passphrase)))
	return m, clock
}

func TestFirstUnlockCreatesVault(t *testing.T) {
	store := newTestStore(t)
	m, _ := newTestManager(t, store)
	assert.Equal(t, StateLocked, m.State())

	require.NoError(t, m.Unlock(context.Background(), []byte("correct-horse")))
	assert.Equal(t, StateUnlocked, m.State())

	v, err := m.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, v.Receipts)
	assert.Equal(t, ledger.DefaultCategories(), v.Categories)

	rec, err := store.LoadVault()
	require.NoError(t, err)
	require.NotNil(t, rec, "first unlock must persist the empty vault")
	assert.Equal(t, storage.RecordVersion, rec.Version)
	assert.Len(t, rec.IV, crypto.NonceSize)

	salt, err := store.GetSalt()
	require.NoError(t, err)
	assert.Len(t, salt, crypto.SaltSize)
}

func TestCorrectHorse(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vault.db")
	db := openStore(t, path)

	m, _ := unlocked(t, db, "correct-horse")
	_, err := m.AddReceipt(ctx, ledger.Receipt{Store: "SuperMart", Total: 980, Date: "2024-05-01"})
	require.NoError(t, err)

	m.Lock()
	assert.Equal(t, StateLocked, m.State())
	require.NoError(t, m.Unlock(ctx, []byte("correct-horse")))

	receipts, err := m.Receipts()
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, "SuperMart", receipts[0].Store)
	assert.Equal(t, int64(980), receipts[0].Total)
	assert.Equal(t, "2024-05-01", receipts[0].Date)

	m.Lock()
	err = m.Unlock(ctx, []byte("wrong-pass"))
	assert.ErrorIs(t, err, ErrWrongPassphrase)
	assert.ErrorIs(t, err, crypto.ErrAuthFailed)
	assert.Equal(t, StateLocked, m.State())

	// survives a restart
	require.NoError(t, db.Close())
	db = openStore(t, path)
	defer db.Close()

	m2, _ := unlocked(t, db, "correct-horse")
	receipts, err = m2.Receipts()
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, "SuperMart", receipts[0].Store)
}

func TestUnlockTwice(t *testing.T) {
	m, _ := unlocked(t, newTestStore(t), "pass")
	assert.ErrorIs(t, m.Unlock(context.Background(), []byte("pass")), ErrAlreadyUnlocked)
	assert.Equal(t, StateUnlocked, m.State())
}

func TestLockedOperations(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, newTestStore(t))

	err := m.Mutate(ctx, func(*ledger.Vault) error { return nil })
	assert.ErrorIs(t, err, ErrLocked)

	_, err = m.Snapshot()
	assert.ErrorIs(t, err, ErrLocked)
	_, err = m.Receipts()
	assert.ErrorIs(t, err, ErrLocked)
	_, err = m.Receipt("x")
	assert.ErrorIs(t, err, ErrLocked)
	_, err = m.AddReceipt(ctx, ledger.Receipt{Date: "2024-05-01"})
	assert.ErrorIs(t, err, ErrLocked)
	_, err = m.ImportCSV(ctx, []byte("garbage"))
	assert.ErrorIs(t, err, ErrLocked)
	_, err = m.VisionConfig()
	assert.ErrorIs(t, err, ErrLocked)
	assert.ErrorIs(t, m.ExportCSV(&bytes.Buffer{}), ErrLocked)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := newTestStore(t)
	m, _ := newTestManager(t, store)
	assert.ErrorIs(t, m.Unlock(ctx, []byte("pass")), context.Canceled)
	assert.Equal(t, StateLocked, m.State())
	assert.Equal(t, 0, store.saves)
}

func TestMutationIsAtomicOnStorageFailure(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	m, _ := unlocked(t, store, "pass")

	_, err := m.AddReceipt(ctx, ledger.Receipt{Store: "First", Date: "2024-05-01", Total: 100})
	require.NoError(t, err)

	store.failSave = errors.New("disk full")
	_, err = m.AddReceipt(ctx, ledger.Receipt{Store: "Second", Date: "2024-05-02", Total: 200})
	require.ErrorIs(t, err, ErrStorage)
	assert.Contains(t, err.Error(), "disk full")

	receipts, err := m.Receipts()
	require.NoError(t, err)
	require.Len(t, receipts, 1, "failed save must not change the session")
	assert.Equal(t, "First", receipts[0].Store)
	assert.Equal(t, StateUnlocked, m.State())

	store.failSave = nil
	m.Lock()
	require.NoError(t, m.Unlock(ctx, []byte("pass")))
	receipts, err = m.Receipts()
	require.NoError(t, err)
	assert.Len(t, receipts, 1)
}

func TestMutateErrorLeavesSessionUnchanged(t *testing.T) {
	store := newTestStore(t)
	m, _ := unlocked(t, store, "pass")
	saves := store.saves

	boom := errors.New("boom")
	err := m.Mutate(context.Background(), func(v *ledger.Vault) error {
		v.Receipts = append(v.Receipts, ledger.Receipt{ID: "half"})
		v.Categories = nil
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, saves, store.saves)

	v, err := m.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, v.Receipts)
	assert.Equal(t, ledger.DefaultCategories(), v.Categories)
}

func TestSnapshotIsACopy(t *testing.T) {
	m, _ := unlocked(t, newTestStore(t), "pass")

	v, err := m.Snapshot()
	require.NoError(t, err)
	v.Categories[0].Name = "Changed"

	v2, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "Groceries", v2.Categories[0].Name)
}

func TestEveryWriteUsesFreshNonce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	m, _ := unlocked(t, store, "pass")

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		_, err := m.AddReceipt(ctx, ledger.Receipt{Date: "2024-05-01", Total: int64(i)})
		require.NoError(t, err)

		rec, err := store.LoadVault()
		require.NoError(t, err)
		iv := string(rec.IV)
		assert.False(t, seen[iv], "nonce reused")
		seen[iv] = true
	}
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	m, _ := unlocked(t, store, "pass")

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.AddReceipt(ctx, ledger.Receipt{Store: fmt.Sprintf("store-%d", i), Date: "2024-05-01"})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	m.Lock()
	require.NoError(t, m.Unlock(ctx, []byte("pass")))
	receipts, err := m.Receipts()
	require.NoError(t, err)
	assert.Len(t, receipts, n, "no write may be lost")
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	m, _ := unlocked(t, store, "old-pass")
	_, err := m.AddReceipt(ctx, ledger.Receipt{Date: "2024-05-01", Total: 1})
	require.NoError(t, err)

	salt, err := store.GetSalt()
	require.NoError(t, err)

	require.NoError(t, m.Reset(ctx))
	assert.Equal(t, StateLocked, m.State())

	rec, err := store.LoadVault()
	require.NoError(t, err)
	assert.Nil(t, rec)

	kept, err := store.GetSalt()
	require.NoError(t, err)
	assert.Equal(t, salt, kept, "reset keeps the salt")

	require.NoError(t, m.Unlock(ctx, []byte("new-pass")))
	receipts, err := m.Receipts()
	require.NoError(t, err)
	assert.Empty(t, receipts)
}

func TestResetFromLocked(t *testing.T) {
	store := newTestStore(t)
	m, _ := newTestManager(t, store)
	require.NoError(t, m.Reset(context.Background()))
	assert.Equal(t, StateLocked, m.State())
}

func TestResetAllForgetsSalt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	m, _ := unlocked(t, store, "pass")

	salt, err := store.GetSalt()
	require.NoError(t, err)

	require.NoError(t, m.ResetAll(ctx))
	gone, err := store.GetSalt()
	require.NoError(t, err)
	assert.Nil(t, gone)

	require.NoError(t, m.Unlock(ctx, []byte("pass")))
	fresh, err := store.GetSalt()
	require.NoError(t, err)
	assert.NotEqual(t, salt, fresh)
}

func TestStorageFailureOnUnlock(t *testing.T) {
	store := newTestStore(t)
	store.failLoad = errors.New("io error")
	m, _ := newTestManager(t, store)

	err := m.Unlock(context.Background(), []byte("pass"))
	assert.ErrorIs(t, err, ErrStorage)
	assert.NotErrorIs(t, err, ErrWrongPassphrase)
	assert.Equal(t, StateLocked, m.State())
}

func TestBootstrapSaveFailureStaysLocked(t *testing.T) {
	store := newTestStore(t)
	store.failSave = errors.New("read-only")
	m, _ := newTestManager(t, store)

	err := m.Unlock(context.Background(), []byte("pass"))
	assert.ErrorIs(t, err, ErrStorage)
	assert.Equal(t, StateLocked, m.State())
}

func TestVerifyPassphrase(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	m, _ := newTestManager(t, store)

	assert.NoError(t, m.VerifyPassphrase(ctx, []byte("anything")), "nothing stored yet")

	require.NoError(t, m.Unlock(ctx, []byte("pass")))
	m.Lock()

	assert.NoError(t, m.VerifyPassphrase(ctx, []byte("pass")))
	assert.ErrorIs(t, m.VerifyPassphrase(ctx, []byte("nope")), ErrWrongPassphrase)
	assert.Equal(t, StateLocked, m.State())
}

func TestReceiptLifecycle(t *testing.T) {
	ctx := context.Background()
	m, clock := unlocked(t, newTestStore(t), "pass")

	r, err := m.AddReceipt(ctx, ledger.Receipt{
		Store: " SuperMart ",
		Items: []ledger.LineItem{{Name: "Milk", Price: 150}},
	})
	require.NoError(t, err)
	assert.Equal(t, "SuperMart", r.Store)
	assert.Equal(t, "2024-05-01", r.Date, "date defaults to today")
	assert.Equal(t, testNow, r.CreatedAt)
	require.Len(t, r.Items, 1)
	assert.NotEmpty(t, r.Items[0].ID)
	assert.Equal(t, 1, r.Items[0].Quantity)

	clock.Advance(time.Hour)
	r.Total = 150
	r.Note = "edited"
	updated, err := m.UpdateReceipt(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, testNow, updated.CreatedAt)
	assert.Equal(t, testNow.Add(time.Hour), updated.UpdatedAt)

	got, err := m.Receipt(r.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Note)

	_, err = m.UpdateReceipt(ctx, ledger.Receipt{ID: "missing", Date: "2024-05-01"})
	assert.ErrorIs(t, err, ErrReceiptNotFound)

	n, err := m.DeleteReceipts(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = m.DeleteReceipts(ctx, r.ID)
	assert.ErrorIs(t, err, ErrReceiptNotFound)
	_, err = m.Receipt(r.ID)
	assert.ErrorIs(t, err, ErrReceiptNotFound)
}

func TestNewestReceiptFirst(t *testing.T) {
	ctx := context.Background()
	m, _ := unlocked(t, newTestStore(t), "pass")

	for _, s := range []string{"a", "b", "c"} {
		_, err := m.AddReceipt(ctx, ledger.Receipt{Store: s, Date: "2024-05-01"})
		require.NoError(t, err)
	}
	receipts, err := m.Receipts()
	require.NoError(t, err)
	require.Len(t, receipts, 3)
	assert.Equal(t, "c", receipts[0].Store)
	assert.Equal(t, "a", receipts[2].Store)
}

func TestAddReceiptValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	m, _ := unlocked(t, store, "pass")
	saves := store.saves

	_, err := m.AddReceipt(ctx, ledger.Receipt{Date: "May 1st"})
	assert.ErrorIs(t, err, ErrInvalidReceipt)
	_, err = m.AddReceipt(ctx, ledger.Receipt{Date: "2024-05-01", Total: -1})
	assert.ErrorIs(t, err, ErrInvalidReceipt)
	assert.Equal(t, saves, store.saves)

	r, err := m.AddReceipt(ctx, ledger.Receipt{Date: "2024-05-01", Items: []ledger.LineItem{{Name: "coupon", Price: -3}}})
	require.NoError(t, err)
	assert.Equal(t, int64(-3), r.Items[0].Price)
}

func TestAddExtraction(t *testing.T) {
	m, _ := unlocked(t, newTestStore(t), "pass")

	e, err := ocr.Decode(strings.NewReader(`{"storeName":"SuperMart","total":"980","items":[{"name":"Milk","price":150}],"rawText":""}`))
	require.NoError(t, err)

	r, err := m.AddExtraction(context.Background(), e, func(r *ledger.Receipt) {
		r.ImageData = "data:image/jpeg;base64,AAAA"
		r.Note = "scanned"
	})
	require.NoError(t, err)
	assert.Equal(t, "SuperMart", r.Store)
	assert.Equal(t, int64(980), r.Total)
	assert.Equal(t, "2024-05-01", r.Date)
	assert.True(t, r.HasImage())
	assert.Equal(t, "scanned", r.Note)
	require.Len(t, r.Items, 1)
	assert.Equal(t, 1, r.Items[0].Quantity)
}

func TestAddExtractionKeepsDiscountLines(t *testing.T) {
	store := newTestStore(t)
	m, _ := unlocked(t, store, "pass")

	e, err := ocr.Decode(strings.NewReader(`{"storeName":"SuperMart","total":400,"items":[{"name":"弁当","price":500},{"name":"値引","price":-100}],"rawText":""}`))
	require.NoError(t, err)

	r, err := m.AddExtraction(context.Background(), e, nil)
	require.NoError(t, err)
	require.Len(t, r.Items, 2)
	assert.Equal(t, int64(-100), r.Items[1].Price)
	assert.Equal(t, int64(400), r.ItemsTotal())

	m.Lock()
	require.NoError(t, m.Unlock(context.Background(), []byte("pass")))
	stored, err := m.Receipt(r.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 2)
	assert.Equal(t, "値引", stored.Items[1].Name)
	assert.Equal(t, int64(-100), stored.Items[1].Price)
}

func TestCategories(t *testing.T) {
	ctx := context.Background()
	m, _ := unlocked(t, newTestStore(t), "pass")

	c, err := m.SaveCategory(ctx, ledger.Category{Name: "Pets"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, DefaultCategoryColor, c.Color)

	_, err = m.SaveCategory(ctx, ledger.Category{ID: "dining", Name: "Eating out", Color: "#000000"})
	require.NoError(t, err)

	v, err := m.Snapshot()
	require.NoError(t, err)
	assert.Len(t, v.Categories, len(ledger.DefaultCategories())+1)
	assert.Equal(t, "Eating out", v.FindCategory("dining").Name)

	_, err = m.SaveCategory(ctx, ledger.Category{Name: "  "})
	assert.ErrorIs(t, err, ErrInvalidCategory)

	require.NoError(t, m.DeleteCategory(ctx, c.ID))
	assert.ErrorIs(t, m.DeleteCategory(ctx, c.ID), ErrCategoryNotFound)
}

func TestStripImages(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	m, _ := unlocked(t, store, "pass")

	r, err := m.AddReceipt(ctx, ledger.Receipt{Date: "2024-05-01", ImageData: "data:image/jpeg;base64,AAAA"})
	require.NoError(t, err)

	n, err := m.StripImages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := m.Receipt(r.ID)
	require.NoError(t, err)
	assert.False(t, got.HasImage())

	saves := store.saves
	n, err = m.StripImages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, saves, store.saves, "nothing to strip, nothing written")
}

// Importing the same file twice stores its receipts twice: dedup only
// applies within one file.
func TestImportCSVTwiceDuplicates(t *testing.T) {
	ctx := context.Background()
	m, _ := unlocked(t, newTestStore(t), "pass")

	_, err := m.AddReceipt(ctx, ledger.Receipt{Store: "SuperMart", Date: "2024-05-01", Total: 980,
		Items: []ledger.LineItem{{Name: "Milk", Price: 150, Quantity: 2}, {Name: "Bread", Price: 200}}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.ExportCSV(&buf))

	res, err := m.ImportCSV(ctx, buf.Bytes())
	require.NoError(t, err)
	assert.Len(t, res.Receipts, 1)
	assert.Equal(t, 1, res.Collapsed)

	_, err = m.ImportCSV(ctx, buf.Bytes())
	require.NoError(t, err)

	receipts, err := m.Receipts()
	require.NoError(t, err)
	require.Len(t, receipts, 3)
	for _, r := range receipts {
		assert.Equal(t, "SuperMart", r.Store)
		assert.Equal(t, int64(980), r.Total)
	}
	assert.Empty(t, receipts[0].Items, "imported copies have no line items")
	assert.Len(t, receipts[2].Items, 2, "the original keeps its items")
}

func TestImportCSVEmptyWritesNothing(t *testing.T) {
	store := newTestStore(t)
	m, _ := unlocked(t, store, "pass")
	saves := store.saves

	res, err := m.ImportCSV(context.Background(), []byte(strings.Join(interchange.Columns, ",")+"\n"))
	require.NoError(t, err)
	assert.Empty(t, res.Receipts)
	assert.Equal(t, saves, store.saves)
}

func TestVisionAPIKeyStaysEncrypted(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	m, _ := unlocked(t, store, "pass")

	require.NoError(t, m.SetVisionAPIKey(ctx, " sk-secret-key "))

	rec, err := store.LoadVault()
	require.NoError(t, err)
	assert.False(t, bytes.Contains(rec.Ciphertext, []byte("sk-secret-key")))

	m.Lock()
	require.NoError(t, m.Unlock(ctx, []byte("pass")))
	cfg, err := m.VisionConfig()
	require.NoError(t, err)
	assert.Equal(t, "sk-secret-key", cfg.APIKey)
	assert.True(t, cfg.Enabled())

	require.NoError(t, m.SetVisionAPIKey(ctx, ""))
	cfg, err = m.VisionConfig()
	require.NoError(t, err)
	assert.False(t, cfg.Enabled())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "locked", StateLocked.String())
	assert.Equal(t, "unlocking", StateUnlocking.String())
	assert.Equal(t, "unlocked", StateUnlocked.String())
	assert.Equal(t, "State(9)", State(9).String())
}
