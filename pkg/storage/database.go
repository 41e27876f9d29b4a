// Package storage persists auth keys in SQLite, sealed at rest.
package storage

import (
	"bytes"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ZentaChain/zentalk-mtproto/pkg/crypto"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidPassword = errors.New("invalid password")
)

// passwordCheck is sealed under the derived key to detect a wrong password on open
var passwordCheck = []byte("zentalk-mtproto auth key store")

// StoredKey is an auth key together with the session parameters it was last used with
type StoredKey struct {
	DC         int
	TestMode   bool
	Key        crypto.AuthKey
	ServerSalt int64
	TimeOffset int64

	// zero for permanent keys
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether a temporary key is past its lifetime
func (k *StoredKey) Expired(now time.Time) bool {
	return !k.ExpiresAt.IsZero() && !now.Before(k.ExpiresAt)
}

// AuthKeyDB stores one auth key per (dc, test mode)
type AuthKeyDB struct {
	db            *sql.DB
	encryptionKey []byte // derived from the password and the database salt
}

// NewAuthKeyDB opens or creates the database at dbPath
func NewAuthKeyDB(dbPath string, password string) (*AuthKeyDB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	kdb := &AuthKeyDB{db: db}
	if err := kdb.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	if err := kdb.unlock(password); err != nil {
		db.Close()
		return nil, err
	}
	return kdb, nil
}

// initSchema creates database tables
func (db *AuthKeyDB) initSchema() error {
	schema := `
	-- Per-database parameters: kdf salt and password check
	CREATE TABLE IF NOT EXISTS meta (
		name TEXT PRIMARY KEY,
		value BLOB NOT NULL
	);

	-- Auth keys, sealed
	CREATE TABLE IF NOT EXISTS auth_keys (
		dc INTEGER NOT NULL,
		test_mode INTEGER NOT NULL,
		key_id TEXT NOT NULL,
		auth_key BLOB NOT NULL,
		server_salt INTEGER NOT NULL,
		time_offset INTEGER NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		PRIMARY KEY (dc, test_mode)
	);

	CREATE INDEX IF NOT EXISTS idx_auth_keys_key_id ON auth_keys(key_id);
	`

	if _, err := db.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// unlock derives the sealing key, creating the salt on first use
func (db *AuthKeyDB) unlock(password string) error {
	salt, err := db.meta("kdf_salt")
	if errors.Is(err, ErrNotFound) {
		salt = make([]byte, crypto.KDFSaltSize)
		if _, err := rand.Read(salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
		db.encryptionKey = crypto.DeriveKey(password, salt)

		check, err := crypto.AESEncrypt(passwordCheck, db.encryptionKey)
		if err != nil {
			return err
		}
		if err := db.setMeta("kdf_salt", salt); err != nil {
			return err
		}
		return db.setMeta("password_check", check)
	}
	if err != nil {
		return err
	}

	db.encryptionKey = crypto.DeriveKey(password, salt)
	check, err := db.meta("password_check")
	if err != nil {
		return err
	}
	plain, err := crypto.AESDecrypt(check, db.encryptionKey)
	if err != nil || !bytes.Equal(plain, passwordCheck) {
		return ErrInvalidPassword
	}
	return nil
}

func (db *AuthKeyDB) meta(name string) ([]byte, error) {
	var value []byte
	err := db.db.QueryRow("SELECT value FROM meta WHERE name = ?", name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return value, nil
}

func (db *AuthKeyDB) setMeta(name string, value []byte) error {
	if _, err := db.db.Exec("INSERT OR REPLACE INTO meta (name, value) VALUES (?, ?)", name, value); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// Close closes the database connection
func (db *AuthKeyDB) Close() error {
	return db.db.Close()
}
