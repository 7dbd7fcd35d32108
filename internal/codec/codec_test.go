package codec

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/receiptvault/internal/crypto"
	"github.com/illarion/receiptvault/internal/ledger"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, crypto.KeySize)
}

func testVault() *ledger.Vault {
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	v := ledger.New()
	v.Settings.VisionAPIKey = "sk-test"
	v.Receipts = []ledger.Receipt{
		{
			ID: "r1", Store: "SuperMart", Date: "2024-05-01", Total: 980,
			Category: "groceries", Note: "weekly, \"big\" shop",
			ImageData: "data:image/jpeg;base64,/9j/4AAQ",
			Items: []ledger.LineItem{
				{ID: "i1", Name: "Milk", Category: "groceries", Price: 150, Quantity: 2},
			},
			CreatedAt: at, UpdatedAt: at.Add(time.Minute),
		},
		{ID: "r2", Date: "2024-04-30", Total: 0, Items: []ledger.LineItem{}, CreatedAt: at, UpdatedAt: at},
	}
	return v
}

func TestRoundTrip(t *testing.T) {
	key := testKey(1)
	for name, v := range map[string]*ledger.Vault{
		"empty":     ledger.New(),
		"populated": testVault(),
		"zero":      {},
	} {
		t.Run(name, func(t *testing.T) {
			sealed, err := EncryptVault(v, key)
			require.NoError(t, err)
			assert.Len(t, sealed.IV, crypto.NonceSize)

			got, err := DecryptVault(sealed, key)
			require.NoError(t, err)
			assert.Equal(t, v, got)
		})
	}
}

func TestCiphertextHidesContent(t *testing.T) {
	sealed, err := EncryptVault(testVault(), testKey(1))
	require.NoError(t, err)
	assert.False(t, bytes.Contains(sealed.Ciphertext, []byte("SuperMart")))
}

func TestWrongKey(t *testing.T) {
	sealed, err := EncryptVault(testVault(), testKey(1))
	require.NoError(t, err)

	got, err := DecryptVault(sealed, testKey(2))
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Nil(t, got)
}

func TestTamperedCiphertext(t *testing.T) {
	key := testKey(1)
	sealed, err := EncryptVault(testVault(), key)
	require.NoError(t, err)

	sealed.Ciphertext[len(sealed.Ciphertext)/2] ^= 0x01
	_, err = DecryptVault(sealed, key)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestMismatchedIV(t *testing.T) {
	key := testKey(1)
	a, err := EncryptVault(testVault(), key)
	require.NoError(t, err)
	b, err := EncryptVault(testVault(), key)
	require.NoError(t, err)

	_, err = DecryptVault(&Sealed{Ciphertext: a.Ciphertext, IV: b.IV}, key)
	assert.ErrorIs(t, err, ErrAuthentication)

	_, err = DecryptVault(&Sealed{Ciphertext: a.Ciphertext, IV: a.IV[:8]}, key)
	assert.ErrorIs(t, err, ErrAuthentication)

	_, err = DecryptVault(nil, key)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestIVNeverReused(t *testing.T) {
	key := testKey(3)
	v := testVault()
	seen := make(map[string]bool)

	for i := 0; i < 500; i++ {
		sealed, err := EncryptVault(v, key)
		require.NoError(t, err)
		require.False(t, seen[string(sealed.IV)], "IV reused after %d calls", i)
		seen[string(sealed.IV)] = true
	}
}

func TestInvalidKeyLength(t *testing.T) {
	_, err := EncryptVault(testVault(), []byte("short"))
	assert.Error(t, err)

	_, err = DecryptVault(&Sealed{}, []byte("short"))
	assert.Error(t, err)
}

func TestCorruptPayload(t *testing.T) {
	key := testKey(4)
	enc := crypto.NewEncryptor(key)
	defer enc.Destroy()

	ciphertext, iv, err := enc.Seal([]byte("not json"))
	require.NoError(t, err)

	_, err = DecryptVault(&Sealed{Ciphertext: ciphertext, IV: iv}, key)
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.NotErrorIs(t, err, ErrAuthentication)
}
