package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ZentaChain/zentalk-mtproto/pkg/crypto"
)

// Save inserts or replaces the key of k.DC
func (db *AuthKeyDB) Save(k *StoredKey) error {
	if k.Key.IsZero() {
		return fmt.Errorf("refusing to store an empty auth key for dc %d", k.DC)
	}
	sealed, err := crypto.AESEncrypt(k.Key.Value(), db.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to seal auth key: %w", err)
	}

	created := k.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	query := `
		INSERT INTO auth_keys (dc, test_mode, key_id, auth_key, server_salt, time_offset, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dc, test_mode) DO UPDATE SET
			key_id = excluded.key_id,
			auth_key = excluded.auth_key,
			server_salt = excluded.server_salt,
			time_offset = excluded.time_offset,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at
	`
	_, err = db.db.Exec(query,
		k.DC, boolToInt(k.TestMode), keyIDHex(k.Key), sealed,
		k.ServerSalt, k.TimeOffset, unixOrZero(k.ExpiresAt), created.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save auth key: %w", err)
	}
	return nil
}

// UpdateSession records the latest salt and time offset for a stored key
func (db *AuthKeyDB) UpdateSession(dc int, testMode bool, salt, timeOffset int64) error {
	res, err := db.db.Exec(
		"UPDATE auth_keys SET server_salt = ?, time_offset = ? WHERE dc = ? AND test_mode = ?",
		salt, timeOffset, dc, boolToInt(testMode),
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Load returns the unexpired key of dc
func (db *AuthKeyDB) Load(dc int, testMode bool) (*StoredKey, error) {
	row := db.db.QueryRow(`
		SELECT dc, test_mode, auth_key, server_salt, time_offset, expires_at, created_at
		FROM auth_keys WHERE dc = ? AND test_mode = ?`, dc, boolToInt(testMode))

	k, err := db.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if k.Expired(time.Now()) {
		return nil, ErrNotFound
	}
	return k, nil
}

// Delete removes the key of dc
func (db *AuthKeyDB) Delete(dc int, testMode bool) error {
	res, err := db.db.Exec("DELETE FROM auth_keys WHERE dc = ? AND test_mode = ?", dc, boolToInt(testMode))
	if err != nil {
		return fmt.Errorf("failed to delete auth key: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns every stored key ordered by dc
func (db *AuthKeyDB) List() ([]*StoredKey, error) {
	rows, err := db.db.Query(`
		SELECT dc, test_mode, auth_key, server_salt, time_offset, expires_at, created_at
		FROM auth_keys ORDER BY dc, test_mode`)
	if err != nil {
		return nil, fmt.Errorf("failed to list auth keys: %w", err)
	}
	defer rows.Close()

	var keys []*StoredKey
	for rows.Next() {
		k, err := db.scan(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// PurgeExpired deletes temporary keys past their lifetime
func (db *AuthKeyDB) PurgeExpired(now time.Time) (int64, error) {
	res, err := db.db.Exec("DELETE FROM auth_keys WHERE expires_at != 0 AND expires_at <= ?", now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired keys: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (db *AuthKeyDB) scan(s scanner) (*StoredKey, error) {
	var (
		k                  StoredKey
		testMode           int
		sealed             []byte
		expires, createdAt int64
	)
	if err := s.Scan(&k.DC, &testMode, &sealed, &k.ServerSalt, &k.TimeOffset, &expires, &createdAt); err != nil {
		return nil, err
	}

	value, err := crypto.AESDecrypt(sealed, db.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to open auth key of dc %d: %w", k.DC, err)
	}
	if k.Key, err = crypto.NewAuthKey(value); err != nil {
		return nil, err
	}

	k.TestMode = intToBool(testMode)
	k.CreatedAt = time.Unix(createdAt, 0)
	if expires != 0 {
		k.ExpiresAt = time.Unix(expires, 0)
	}
	return &k, nil
}
