// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package archive

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Fantom-foundation/Carmen/go/common"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	kind          INTEGER NOT NULL,
	address       BLOB    NOT NULL,
	key           BLOB    NOT NULL,
	reincarnation INTEGER NOT NULL,
	block         INTEGER NOT NULL,
	value         BLOB    NOT NULL,
	PRIMARY KEY (kind, address, key, reincarnation, block)
);
CREATE TABLE IF NOT EXISTS meta (
	name  TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
`

var emptyKey = []byte{}

// SQLite is the SQLite-backed Archive, using "WHERE block <= ? ORDER BY
// block DESC LIMIT 1" for most-recent-predecessor reads (§4.10.1).
type SQLite struct {
	db          *sql.DB
	latestBlock common.BlockId
	hasLatest   bool
}

// OpenSQLite opens (or creates) a SQLite archive at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, common.NewError(common.KindInternal, "opening sqlite archive", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, common.NewError(common.KindInternal, "creating sqlite archive schema", err)
	}

	a := &SQLite{db: db}
	row := db.QueryRow(`SELECT value FROM meta WHERE name = 'latest_block'`)
	var latest int64
	if err := row.Scan(&latest); err == nil {
		a.latestBlock = common.BlockId(latest)
		a.hasLatest = true
	} else if err != sql.ErrNoRows {
		return nil, common.NewError(common.KindInternal, "reading sqlite archive metadata", err)
	}
	return a, nil
}

func keyBytesOrEmpty(key *common.Key) []byte {
	if key == nil {
		return emptyKey
	}
	return key[:]
}

func (a *SQLite) pointInTime(kind byte, addr common.Address, key *common.Key, reincarnation uint32, block common.BlockId) ([]byte, bool, error) {
	row := a.db.QueryRow(
		`SELECT value FROM records WHERE kind = ? AND address = ? AND key = ? AND reincarnation = ? AND block <= ? ORDER BY block DESC LIMIT 1`,
		kind, addr[:], keyBytesOrEmpty(key), reincarnation, int64(block),
	)
	var value []byte
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, common.NewError(common.KindInternal, "sqlite archive read", err)
	}
	return value, true, nil
}

func (a *SQLite) reincarnationAt(addr common.Address, block common.BlockId) (uint32, error) {
	v, found, err := a.pointInTime(kindReincarnation, addr, nil, 0, block)
	if err != nil || !found {
		return 0, err
	}
	return uint32(v[0])<<24 | uint32(v[1])<<16 | uint32(v[2])<<8 | uint32(v[3]), nil
}

func (a *SQLite) Add(block common.BlockId, update *common.Update) error {
	if a.hasLatest && block <= a.latestBlock {
		return ErrBlockNotIncreasing
	}
	projected, err := update.Project()
	if err != nil {
		return err
	}

	tx, err := a.db.Begin()
	if err != nil {
		return common.NewError(common.KindInternal, "sqlite archive begin tx", err)
	}
	defer tx.Rollback()

	insert := func(kind byte, addr common.Address, key *common.Key, reincarnation uint32, value []byte) error {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO records (kind, address, key, reincarnation, block, value) VALUES (?, ?, ?, ?, ?, ?)`,
			kind, addr[:], keyBytesOrEmpty(key), reincarnation, int64(block), value,
		)
		return err
	}

	for addr, au := range projected {
		if err := insert(kindAccountSeen, addr, nil, 0, []byte{1}); err != nil {
			return common.NewError(common.KindInternal, "sqlite archive write", err)
		}

		reinc, err := a.reincarnationAt(addr, block)
		if err != nil {
			return err
		}
		if au.Created || au.Deleted {
			reinc++
			var r [4]byte
			r[0], r[1], r[2], r[3] = byte(reinc>>24), byte(reinc>>16), byte(reinc>>8), byte(reinc)
			if err := insert(kindReincarnation, addr, nil, 0, r[:]); err != nil {
				return common.NewError(common.KindInternal, "sqlite archive write", err)
			}
			exists := byte(0)
			if au.Created {
				exists = 1
			}
			if err := insert(kindExists, addr, nil, 0, []byte{exists}); err != nil {
				return common.NewError(common.KindInternal, "sqlite archive write", err)
			}
		}
		if au.Balance != nil {
			if err := insert(kindBalance, addr, nil, 0, au.Balance[:]); err != nil {
				return common.NewError(common.KindInternal, "sqlite archive write", err)
			}
		}
		if au.Nonce != nil {
			if err := insert(kindNonce, addr, nil, 0, au.Nonce[:]); err != nil {
				return common.NewError(common.KindInternal, "sqlite archive write", err)
			}
		}
		if au.Code != nil {
			if err := insert(kindCode, addr, nil, 0, *au.Code); err != nil {
				return common.NewError(common.KindInternal, "sqlite archive write", err)
			}
		}
		for _, s := range au.Storage {
			k := s.Key
			if err := insert(kindStorage, addr, &k, reinc, s.Value[:]); err != nil {
				return common.NewError(common.KindInternal, "sqlite archive write", err)
			}
		}

		hash := accountUpdateHash(au)
		if err := insert(kindAccountChange, addr, nil, 0, hash[:]); err != nil {
			return common.NewError(common.KindInternal, "sqlite archive write", err)
		}
	}

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta (name, value) VALUES ('latest_block', ?)`, int64(block)); err != nil {
		return common.NewError(common.KindInternal, "sqlite archive write metadata", err)
	}
	if err := tx.Commit(); err != nil {
		return common.NewError(common.KindInternal, "sqlite archive commit", err)
	}

	a.latestBlock = block
	a.hasLatest = true
	return nil
}

func (a *SQLite) Exists(block common.BlockId, addr common.Address) (bool, error) {
	v, found, err := a.pointInTime(kindExists, addr, nil, 0, block)
	if err != nil || !found {
		return false, err
	}
	return v[0] == 1, nil
}

func (a *SQLite) GetBalance(block common.BlockId, addr common.Address) (common.Balance, error) {
	v, found, err := a.pointInTime(kindBalance, addr, nil, 0, block)
	if err != nil || !found {
		return common.Balance{}, err
	}
	var out common.Balance
	copy(out[:], v)
	return out, nil
}

func (a *SQLite) GetNonce(block common.BlockId, addr common.Address) (common.Nonce, error) {
	v, found, err := a.pointInTime(kindNonce, addr, nil, 0, block)
	if err != nil || !found {
		return common.Nonce{}, err
	}
	var out common.Nonce
	copy(out[:], v)
	return out, nil
}

func (a *SQLite) GetCode(block common.BlockId, addr common.Address) (common.Code, error) {
	v, found, err := a.pointInTime(kindCode, addr, nil, 0, block)
	if err != nil || !found {
		return nil, err
	}
	return v, nil
}

func (a *SQLite) GetStorage(block common.BlockId, addr common.Address, key common.Key) (common.Value, error) {
	reinc, err := a.reincarnationAt(addr, block)
	if err != nil {
		return common.Value{}, err
	}
	v, found, err := a.pointInTime(kindStorage, addr, &key, reinc, block)
	if err != nil || !found {
		return common.Value{}, err
	}
	var out common.Value
	copy(out[:], v)
	return out, nil
}

func (a *SQLite) GetLatestBlock() (common.BlockId, error) { return a.latestBlock, nil }

func (a *SQLite) GetAccountList(block common.BlockId) ([]common.Address, error) {
	rows, err := a.db.Query(`SELECT DISTINCT address FROM records WHERE kind = ? ORDER BY address`, kindAccountSeen)
	if err != nil {
		return nil, common.NewError(common.KindInternal, "sqlite archive account list", err)
	}
	defer rows.Close()

	var out []common.Address
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, common.NewError(common.KindInternal, "sqlite archive account list", err)
		}
		var addr common.Address
		copy(addr[:], raw)
		_, found, err := a.pointInTime(kindAccountChange, addr, nil, 0, block)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, addr)
		}
	}
	return out, rows.Err()
}

func (a *SQLite) GetAccountHash(block common.BlockId, addr common.Address) (common.Hash, error) {
	rows, err := a.db.Query(
		`SELECT value FROM records WHERE kind = ? AND address = ? AND block <= ? ORDER BY block ASC`,
		kindAccountChange, addr[:], int64(block),
	)
	if err != nil {
		return common.Hash{}, common.NewError(common.KindInternal, "sqlite archive account hash", err)
	}
	defer rows.Close()

	chain := common.NewChainHash()
	for rows.Next() {
		var value []byte
		if err := rows.Scan(&value); err != nil {
			return common.Hash{}, common.NewError(common.KindInternal, "sqlite archive account hash", err)
		}
		chain.Add(value)
	}
	return chain.Hash(), rows.Err()
}

func (a *SQLite) GetHash(block common.BlockId) (common.Hash, error) {
	accounts, err := a.GetAccountList(block)
	if err != nil {
		return common.Hash{}, err
	}
	chain := common.NewChainHash()
	for _, addr := range accounts {
		h, err := a.GetAccountHash(block, addr)
		if err != nil {
			return common.Hash{}, err
		}
		chain.Add(h[:])
	}
	return chain.Hash(), nil
}

func (a *SQLite) Verify(block common.BlockId, expected common.Hash, progress func(addr string)) error {
	got, err := a.GetHash(block)
	if err != nil {
		return err
	}
	if got != expected {
		return common.NewError(common.KindInvalidArgument, "archive hash mismatch at verify", nil)
	}
	accounts, err := a.GetAccountList(block)
	if err != nil {
		return err
	}
	for _, addr := range accounts {
		if _, err := a.GetAccountHash(block, addr); err != nil {
			return err
		}
		if progress != nil {
			progress(addr.String())
		}
	}
	return nil
}

func (a *SQLite) Close() error {
	if err := a.db.Close(); err != nil {
		return common.NewError(common.KindInternal, "closing sqlite archive", err)
	}
	return nil
}
