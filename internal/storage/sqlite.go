package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/mrz1836/custodian/internal/fileutil"
	"github.com/mrz1836/custodian/internal/protocol"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

const sqliteOptions = "_secure_delete=on&_txlock=exclusive&_foreign_keys=on&_busy_timeout=5000"

// maxSQLiteIndex is the largest derivation index representable in an INTEGER column.
const maxSQLiteIndex = 1<<63 - 1

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS wallets (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	mek_encrypted BLOB NOT NULL,
	mdk_encrypted BLOB NOT NULL,
	next_index INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS keys (
	wallet_id TEXT NOT NULL REFERENCES wallets(id) ON DELETE CASCADE,
	address BLOB NOT NULL,
	public_key BLOB NOT NULL,
	secret_key_encrypted BLOB NOT NULL,
	key_idx INTEGER,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (wallet_id, address)
);

CREATE TABLE IF NOT EXISTS msig_addrs (
	wallet_id TEXT NOT NULL REFERENCES wallets(id) ON DELETE CASCADE,
	address BLOB NOT NULL,
	version INTEGER NOT NULL,
	threshold INTEGER NOT NULL,
	pks BLOB NOT NULL,
	PRIMARY KEY (wallet_id, address)
);
`

// ErrTooManyKeys is returned when a wallet's derivation counter is exhausted.
var ErrTooManyKeys = errors.New("derivation index space exhausted")

type walletRow struct {
	ID                 string `db:"id"`
	Name               string `db:"name"`
	EncryptedMasterKey []byte `db:"mek_encrypted"`
	EncryptedMDK       []byte `db:"mdk_encrypted"`
	NextIndex          int64  `db:"next_index"`
	CreatedAt          int64  `db:"created_at"`
}

func (r walletRow) wallet() *Wallet {
	return &Wallet{
		ID:                 r.ID,
		Name:               r.Name,
		Driver:             DriverSQLite,
		EncryptedMasterKey: r.EncryptedMasterKey,
		EncryptedMDK:       r.EncryptedMDK,
		NextIndex:          uint64(r.NextIndex), //nolint:gosec // column is never negative
		CreatedAt:          time.Unix(0, r.CreatedAt).UTC(),
	}
}

type keyRow struct {
	Address   []byte        `db:"address"`
	PublicKey []byte        `db:"public_key"`
	Secret    []byte        `db:"secret_key_encrypted"`
	Index     sql.NullInt64 `db:"key_idx"`
	CreatedAt int64         `db:"created_at"`
}

func (r keyRow) key() (*Key, error) {
	pk, err := protocol.PublicKeyFromBytes(r.PublicKey)
	if err != nil {
		return nil, err
	}
	k := &Key{
		Address:       addressFromBytes(r.Address),
		PublicKey:     pk,
		EncryptedSeed: r.Secret,
		Imported:      !r.Index.Valid,
		CreatedAt:     time.Unix(0, r.CreatedAt).UTC(),
	}
	if r.Index.Valid {
		k.Index = uint64(r.Index.Int64) //nolint:gosec // column is never negative
	}
	return k, nil
}

type msigRow struct {
	Version   int    `db:"version"`
	Threshold int    `db:"threshold"`
	PKs       []byte `db:"pks"`
}

func addressFromBytes(b []byte) protocol.Address {
	var a protocol.Address
	copy(a[:], b)
	return a
}

// SQLiteDriver stores all wallets in a single SQLite database.
type SQLiteDriver struct {
	db *sqlx.DB
}

// NewSQLiteDriver opens (and migrates) the database at path.
func NewSQLiteDriver(path string) (*SQLiteDriver, error) {
	if err := os.MkdirAll(filepath.Dir(path), fileutil.DirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sqlx.Connect("sqlite3", fmt.Sprintf("file:%s?%s", path, sqliteOptions))
	if err != nil {
		return nil, fmt.Errorf("connecting to wallet database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating wallet database: %w", err)
	}
	return &SQLiteDriver{db: db}, nil
}

// Name implements Driver.
func (d *SQLiteDriver) Name() string { return DriverSQLite }

func isConstraint(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint
}

// CreateWallet implements Driver.
func (d *SQLiteDriver) CreateWallet(ctx context.Context, w *Wallet) error {
	_, err := d.db.ExecContext(ctx,
		"INSERT INTO wallets (id, name, mek_encrypted, mdk_encrypted, next_index, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		w.ID, w.Name, w.EncryptedMasterKey, w.EncryptedMDK, int64(w.NextIndex), w.CreatedAt.UnixNano()) //nolint:gosec // bounded by maxSQLiteIndex
	if isConstraint(err) {
		return custerr.WithDetails(custerr.ErrWalletExists, map[string]string{"name": w.Name})
	}
	if err != nil {
		return fmt.Errorf("inserting wallet: %w", err)
	}
	return nil
}

func (d *SQLiteDriver) getWallet(ctx context.Context, q sqlx.QueryerContext, id string) (*Wallet, error) {
	var row walletRow
	err := sqlx.GetContext(ctx, q, &row,
		"SELECT id, name, mek_encrypted, mdk_encrypted, next_index, created_at FROM wallets WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, custerr.WithDetails(custerr.ErrWalletNotFound, map[string]string{"id": id})
	}
	if err != nil {
		return nil, fmt.Errorf("selecting wallet: %w", err)
	}
	return row.wallet(), nil
}

// GetWallet implements Driver.
func (d *SQLiteDriver) GetWallet(ctx context.Context, id string) (*Wallet, error) {
	return d.getWallet(ctx, d.db, id)
}

// ListWallets implements Driver.
func (d *SQLiteDriver) ListWallets(ctx context.Context) ([]*Wallet, error) {
	var rows []walletRow
	if err := d.db.SelectContext(ctx, &rows,
		"SELECT id, name, mek_encrypted, mdk_encrypted, next_index, created_at FROM wallets ORDER BY name"); err != nil {
		return nil, fmt.Errorf("selecting wallets: %w", err)
	}
	out := make([]*Wallet, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.wallet())
	}
	return out, nil
}

// RenameWallet implements Driver.
func (d *SQLiteDriver) RenameWallet(ctx context.Context, id, name string) error {
	res, err := d.db.ExecContext(ctx, "UPDATE wallets SET name = ? WHERE id = ?", name, id)
	if isConstraint(err) {
		return custerr.WithDetails(custerr.ErrWalletExists, map[string]string{"name": name})
	}
	if err != nil {
		return fmt.Errorf("renaming wallet: %w", err)
	}
	return requireAffected(res, custerr.WithDetails(custerr.ErrWalletNotFound, map[string]string{"id": id}))
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func insertKey(ctx context.Context, e sqlx.ExecerContext, walletID string, k *Key) error {
	var idx sql.NullInt64
	if !k.Imported {
		idx = sql.NullInt64{Int64: int64(k.Index), Valid: true} //nolint:gosec // bounded by maxSQLiteIndex
	}
	createdAt := k.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := e.ExecContext(ctx,
		"INSERT INTO keys (wallet_id, address, public_key, secret_key_encrypted, key_idx, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		walletID, k.Address[:], k.PublicKey[:], k.EncryptedSeed, idx, createdAt.UnixNano())
	if isConstraint(err) {
		return custerr.WithDetails(custerr.ErrKeyExists, map[string]string{"address": k.Address.String()})
	}
	if err != nil {
		return fmt.Errorf("inserting key: %w", err)
	}
	return nil
}

// InsertKey implements Driver.
func (d *SQLiteDriver) InsertKey(ctx context.Context, walletID string, k *Key) error {
	if _, err := d.getWallet(ctx, d.db, walletID); err != nil {
		return err
	}
	return insertKey(ctx, d.db, walletID, k)
}

// InsertDerivedKey implements Driver. The whole search runs inside one
// exclusive transaction.
func (d *SQLiteDriver) InsertDerivedKey(ctx context.Context, walletID string, derive DeriveFunc) (_ *Key, err error) {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	w, err := d.getWallet(ctx, tx, walletID)
	if err != nil {
		return nil, err
	}

	index := w.NextIndex
	var k *Key
	for {
		if index >= maxSQLiteIndex {
			return nil, ErrTooManyKeys
		}
		k, err = derive(index)
		if err != nil {
			return nil, err
		}
		var cnt int
		if err = tx.GetContext(ctx, &cnt, "SELECT COUNT(1) FROM keys WHERE wallet_id = ? AND address = ?", walletID, k.Address[:]); err != nil {
			return nil, fmt.Errorf("checking key: %w", err)
		}
		if cnt == 0 {
			break
		}
		index++
	}

	k.Index = index
	k.Imported = false
	if err = insertKey(ctx, tx, walletID, k); err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, "UPDATE wallets SET next_index = ? WHERE id = ?", int64(index+1), walletID); err != nil { //nolint:gosec // bounded above
		return nil, fmt.Errorf("advancing index: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing key: %w", err)
	}
	return k, nil
}

// GetKey implements Driver.
func (d *SQLiteDriver) GetKey(ctx context.Context, walletID string, addr protocol.Address) (*Key, error) {
	var row keyRow
	err := d.db.GetContext(ctx, &row,
		"SELECT address, public_key, secret_key_encrypted, key_idx, created_at FROM keys WHERE wallet_id = ? AND address = ?",
		walletID, addr[:])
	if errors.Is(err, sql.ErrNoRows) {
		if _, werr := d.getWallet(ctx, d.db, walletID); werr != nil {
			return nil, werr
		}
		return nil, custerr.WithDetails(custerr.ErrKeyNotFound, map[string]string{"address": addr.String()})
	}
	if err != nil {
		return nil, fmt.Errorf("selecting key: %w", err)
	}
	return row.key()
}

// DeleteKey implements Driver.
func (d *SQLiteDriver) DeleteKey(ctx context.Context, walletID string, addr protocol.Address) error {
	res, err := d.db.ExecContext(ctx, "DELETE FROM keys WHERE wallet_id = ? AND address = ?", walletID, addr[:])
	if err != nil {
		return fmt.Errorf("deleting key: %w", err)
	}
	return requireAffected(res, custerr.WithDetails(custerr.ErrKeyNotFound, map[string]string{"address": addr.String()}))
}

func (d *SQLiteDriver) listAddresses(ctx context.Context, table, walletID string) ([]protocol.Address, error) {
	if _, err := d.getWallet(ctx, d.db, walletID); err != nil {
		return nil, err
	}
	var raw [][]byte
	//nolint:gosec // table is one of two constants
	if err := d.db.SelectContext(ctx, &raw, "SELECT address FROM "+table+" WHERE wallet_id = ? ORDER BY address", walletID); err != nil {
		return nil, fmt.Errorf("selecting addresses: %w", err)
	}
	out := make([]protocol.Address, 0, len(raw))
	for _, b := range raw {
		out = append(out, addressFromBytes(b))
	}
	return out, nil
}

// ListKeys implements Driver.
func (d *SQLiteDriver) ListKeys(ctx context.Context, walletID string) ([]protocol.Address, error) {
	return d.listAddresses(ctx, "keys", walletID)
}

// PutMultisig implements Driver.
func (d *SQLiteDriver) PutMultisig(ctx context.Context, walletID string, m *Multisig) error {
	if _, err := d.getWallet(ctx, d.db, walletID); err != nil {
		return err
	}
	_, err := d.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO msig_addrs (wallet_id, address, version, threshold, pks) VALUES (?, ?, ?, ?, ?)",
		walletID, m.Address[:], m.Version, m.Threshold, protocol.Encode(m.PublicKeys))
	if err != nil {
		return fmt.Errorf("inserting multisig: %w", err)
	}
	return nil
}

// GetMultisig implements Driver.
func (d *SQLiteDriver) GetMultisig(ctx context.Context, walletID string, addr protocol.Address) (*Multisig, error) {
	var row msigRow
	err := d.db.GetContext(ctx, &row,
		"SELECT version, threshold, pks FROM msig_addrs WHERE wallet_id = ? AND address = ?", walletID, addr[:])
	if errors.Is(err, sql.ErrNoRows) {
		if _, werr := d.getWallet(ctx, d.db, walletID); werr != nil {
			return nil, werr
		}
		return nil, custerr.WithDetails(custerr.ErrMultisigNotFound, map[string]string{"address": addr.String()})
	}
	if err != nil {
		return nil, fmt.Errorf("selecting multisig: %w", err)
	}
	var pks []protocol.PublicKey
	if err := protocol.Decode(row.PKs, &pks); err != nil {
		return nil, fmt.Errorf("decoding multisig keys: %w", err)
	}
	return &Multisig{
		Address:    addr,
		Version:    uint8(row.Version),   //nolint:gosec // stored from uint8
		Threshold:  uint8(row.Threshold), //nolint:gosec // stored from uint8
		PublicKeys: pks,
	}, nil
}

// DeleteMultisig implements Driver.
func (d *SQLiteDriver) DeleteMultisig(ctx context.Context, walletID string, addr protocol.Address) error {
	res, err := d.db.ExecContext(ctx, "DELETE FROM msig_addrs WHERE wallet_id = ? AND address = ?", walletID, addr[:])
	if err != nil {
		return fmt.Errorf("deleting multisig: %w", err)
	}
	return requireAffected(res, custerr.WithDetails(custerr.ErrMultisigNotFound, map[string]string{"address": addr.String()}))
}

// ListMultisig implements Driver.
func (d *SQLiteDriver) ListMultisig(ctx context.Context, walletID string) ([]protocol.Address, error) {
	return d.listAddresses(ctx, "msig_addrs", walletID)
}

// Close implements Driver.
func (d *SQLiteDriver) Close() error {
	return d.db.Close()
}
