package storage

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket = []byte("config") // format version, salt, timestamps - unencrypted
	VaultBucket  = []byte("vault")  // the single encrypted vault record
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigSalt     = []byte("salt")
	ConfigVaultID  = []byte("vault_id")
)

// recordKey is the only key ever written to VaultBucket
var recordKey = []byte("data")

const (
	// RecordVersion is the version written with every record
	RecordVersion = 1

	// OpenTimeout bounds how long Open waits for another process's file lock
	OpenTimeout = time.Second

	filePerm = 0600
)

var (
	ErrNotInitialized = errors.New("vault database not initialized")

	// ErrBusy is returned when another process holds the database lock
	ErrBusy = errors.New("vault database is in use")
)

// Record is the persisted form of the encrypted vault
type Record struct {
	Ciphertext []byte `json:"ciphertext"`
	IV         []byte `json:"iv"`
	Version    int    `json:"version"`
}

// Storage provides BBolt-based storage for the vault
type Storage struct {
	db *bolt.DB
}

// Open opens or creates a vault database
func Open(path string) (*Storage, error) {
	db, err := bolt.Open(path, filePerm, &bolt.Options{Timeout: OpenTimeout})
	if errors.Is(err, bolt.ErrTimeout) {
		return nil, fmt.Errorf("%w: %s", ErrBusy, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.db.Path()
}

// Initialize creates the bucket structure. Calling it on an initialized
// database leaves existing data alone.
func (s *Storage) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, VaultBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}
		if err := config.Put(ConfigVersion, []byte("1")); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigModified, created)
	})
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// LoadVault returns the stored record, or nil when none exists
func (s *Storage) LoadVault() (*Record, error) {
	var record *Record
	err := s.db.View(func(tx *bolt.Tx) error {
		vault := tx.Bucket(VaultBucket)
		if vault == nil {
			return nil
		}
		data := vault.Get(recordKey)
		if data == nil {
			return nil
		}
		record = &Record{}
		if err := json.Unmarshal(data, record); err != nil {
			return fmt.Errorf("failed to decode vault record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// SaveVault overwrites the stored record
func (s *Storage) SaveVault(record *Record) error {
	if record == nil {
		return fmt.Errorf("nil vault record")
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode vault record: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		vault := tx.Bucket(VaultBucket)
		config := tx.Bucket(ConfigBucket)
		if vault == nil || config == nil {
			return ErrNotInitialized
		}
		if err := vault.Put(recordKey, data); err != nil {
			return err
		}
		modified, _ := time.Now().MarshalBinary()
		return config.Put(ConfigModified, modified)
	})
}

// ClearVault deletes the stored record. The salt is left in place.
func (s *Storage) ClearVault() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		vault := tx.Bucket(VaultBucket)
		if vault == nil {
			return nil
		}
		return vault.Delete(recordKey)
	})
}

// HasVault reports whether a record is stored, without decoding it
func (s *Storage) HasVault() (bool, error) {
	var present bool
	err := s.db.View(func(tx *bolt.Tx) error {
		vault := tx.Bucket(VaultBucket)
		present = vault != nil && vault.Get(recordKey) != nil
		return nil
	})
	return present, err
}

// SetSalt stores the KDF salt, base64-encoded
func (s *Storage) SetSalt(salt []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		return config.Put(ConfigSalt, []byte(base64.StdEncoding.EncodeToString(salt)))
	})
}

// GetSalt retrieves the KDF salt, or nil when none has been stored
func (s *Storage) GetSalt() ([]byte, error) {
	var salt []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return nil
		}
		encoded := config.Get(ConfigSalt)
		if encoded == nil {
			return nil
		}
		decoded, err := base64.StdEncoding.DecodeString(string(encoded))
		if err != nil {
			return fmt.Errorf("failed to decode salt: %w", err)
		}
		salt = decoded
		return nil
	})
	return salt, err
}

// ClearSalt deletes the KDF salt. Any record encrypted under it becomes
// permanently undecryptable.
func (s *Storage) ClearSalt() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return nil
		}
		return config.Delete(ConfigSalt)
	})
}

// GetModified retrieves the last modified timestamp
func (s *Storage) GetModified() (time.Time, error) {
	return s.getTime(ConfigModified)
}

// GetCreated retrieves the creation timestamp
func (s *Storage) GetCreated() (time.Time, error) {
	return s.getTime(ConfigCreated)
}

func (s *Storage) getTime(key []byte) (time.Time, error) {
	var t time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		data := config.Get(key)
		if data == nil {
			return fmt.Errorf("%s not found", key)
		}
		return t.UnmarshalBinary(data)
	})
	return t, err
}

// GetVaultID retrieves the vault ID from config bucket
func (s *Storage) GetVaultID() (string, error) {
	var vaultID string
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		data := config.Get(ConfigVaultID)
		if data == nil {
			return fmt.Errorf("vault_id not found")
		}
		vaultID = string(data)
		return nil
	})
	return vaultID, err
}

// GetOrCreateVaultID retrieves existing vault ID or generates a new one
func (s *Storage) GetOrCreateVaultID() (string, error) {
	vaultID, err := s.GetVaultID()
	if err == nil {
		return vaultID, nil
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate vault ID: %w", err)
	}
	vaultID = hex.EncodeToString(b)

	err = s.db.Update(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		return config.Put(ConfigVaultID, []byte(vaultID))
	})
	if err != nil {
		return "", err
	}

	return vaultID, nil
}

// Compact creates a compacted copy of the database, removing unused space.
// Overwriting the record leaves free pages behind, most visibly after
// images are stripped.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, filePerm, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	s.db, err = bolt.Open(srcPath, filePerm, &bolt.Options{Timeout: OpenTimeout})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}
