// Copyright 2024 The Carmen Authors
// This file is part of Carmen.
//
// Carmen is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package state

import (
	"github.com/Fantom-foundation/Carmen/go/backend/depot"
	"github.com/Fantom-foundation/Carmen/go/backend/index"
	"github.com/Fantom-foundation/Carmen/go/backend/store"
	"github.com/Fantom-foundation/Carmen/go/common"
)

// schema3 skips the key index and slot-set bookkeeping of schema12:
// slots are keyed directly by (AddressId, Key), and an account reset
// bumps a per-address reincarnation counter rather than clearing each
// live slot individually. A slot's value store entry is only valid for
// reads made under the reincarnation value recorded alongside it (§4.9,
// §3.3 "reincarnation coherence").
type schema3 struct {
	b *backends

	addressIndex index.Index[common.Address]
	slotIndex    index.Index[common.AddressKey]

	balances      *store.Store[common.AddressId, common.Balance]
	nonces        *store.Store[common.AddressId, common.Nonce]
	accountStates *store.Store[common.AddressId, common.AccountState]
	codeHashes    *store.Store[common.AddressId, common.Hash]
	reincarnation *store.Store[common.AddressId, uint32]
	slots         *store.Store[common.SlotId, store.ReincarnatedValue]

	codes *depot.Depot
}

func newSchema3(params Parameters) (*schema3, error) {
	b := newBackends(params)

	addressIndex, err := openIndex[common.Address](b, prefixAddressIndex)
	if err != nil {
		return nil, err
	}
	slotIndex, err := openIndex[common.AddressKey](b, prefixSlotIndex)
	if err != nil {
		return nil, err
	}

	balances, err := openStore[common.AddressId](b, "balances", store.BalanceCodec{})
	if err != nil {
		return nil, err
	}
	nonces, err := openStore[common.AddressId](b, "nonces", store.NonceCodec{})
	if err != nil {
		return nil, err
	}
	accountStates, err := openStore[common.AddressId](b, "account_states", store.AccountStateCodec{})
	if err != nil {
		return nil, err
	}
	codeHashes, err := openStore[common.AddressId](b, "code_hashes", store.HashCodec{})
	if err != nil {
		return nil, err
	}
	reincarnation, err := openStore[common.AddressId](b, "reincarnation", store.Uint32Codec{})
	if err != nil {
		return nil, err
	}
	slots, err := openStore[common.SlotId](b, "slots", store.ReincarnatedValueCodec{})
	if err != nil {
		return nil, err
	}

	codes, err := openDepot(b, prefixCodeDepot)
	if err != nil {
		return nil, err
	}

	return &schema3{
		b:             b,
		addressIndex:  addressIndex,
		slotIndex:     slotIndex,
		balances:      balances,
		nonces:        nonces,
		accountStates: accountStates,
		codeHashes:    codeHashes,
		reincarnation: reincarnation,
		slots:         slots,
		codes:         codes,
	}, nil
}

func (s *schema3) Exists(addr common.Address) (bool, error) {
	id, found, err := s.addressIndex.Get(addr)
	if err != nil || !found {
		return false, err
	}
	state, err := s.accountStates.Get(id)
	if err != nil {
		return false, err
	}
	return state == common.Exists, nil
}

func (s *schema3) GetBalance(addr common.Address) (common.Balance, error) {
	id, found, err := s.addressIndex.Get(addr)
	if err != nil || !found {
		return common.Balance{}, err
	}
	return s.balances.Get(id)
}

func (s *schema3) GetNonce(addr common.Address) (common.Nonce, error) {
	id, found, err := s.addressIndex.Get(addr)
	if err != nil || !found {
		return common.Nonce{}, err
	}
	return s.nonces.Get(id)
}

func (s *schema3) GetCode(addr common.Address) (common.Code, error) {
	id, found, err := s.addressIndex.Get(addr)
	if err != nil || !found {
		return nil, err
	}
	return s.codes.Get(id)
}

func (s *schema3) GetCodeHash(addr common.Address) (common.Hash, error) {
	id, found, err := s.addressIndex.Get(addr)
	if err != nil || !found {
		return common.Hash{}, err
	}
	return s.codeHashes.Get(id)
}

// GetStorage returns the zero value if the slot's stored reincarnation
// does not match the account's current one: the account was re-created
// since that slot was last written, so its old value is logically gone
// even though the backing record has not been rewritten (§4.9.3).
func (s *schema3) GetStorage(addr common.Address, key common.Key) (common.Value, error) {
	addrId, found, err := s.addressIndex.Get(addr)
	if err != nil || !found {
		return common.Value{}, err
	}
	slotId, found, err := s.slotIndex.Get(common.AddressKey{Address: addrId, Key: key})
	if err != nil || !found {
		return common.Value{}, err
	}
	current, err := s.reincarnation.Get(addrId)
	if err != nil {
		return common.Value{}, err
	}
	stored, err := s.slots.Get(slotId)
	if err != nil {
		return common.Value{}, err
	}
	if stored.Reincarnation != current {
		return common.Value{}, nil
	}
	return stored.Value, nil
}

func (s *schema3) bumpReincarnation(addrId common.AddressId) error {
	current, err := s.reincarnation.Get(addrId)
	if err != nil {
		return err
	}
	return s.reincarnation.Set(addrId, current+1)
}

func (s *schema3) Apply(block common.BlockId, update *common.Update) error {
	for _, addr := range update.DeletedAccounts {
		id, _, err := s.addressIndex.GetOrAdd(addr)
		if err != nil {
			return err
		}
		if err := s.accountStates.Set(id, common.Unknown); err != nil {
			return err
		}
		if err := s.bumpReincarnation(id); err != nil {
			return err
		}
	}
	for _, addr := range update.CreatedAccounts {
		id, _, err := s.addressIndex.GetOrAdd(addr)
		if err != nil {
			return err
		}
		if err := s.accountStates.Set(id, common.Exists); err != nil {
			return err
		}
		if err := s.bumpReincarnation(id); err != nil {
			return err
		}
	}
	for _, u := range update.Balances {
		id, _, err := s.addressIndex.GetOrAdd(u.Account)
		if err != nil {
			return err
		}
		if err := s.balances.Set(id, u.Balance); err != nil {
			return err
		}
	}
	for _, u := range update.Nonces {
		id, _, err := s.addressIndex.GetOrAdd(u.Account)
		if err != nil {
			return err
		}
		if err := s.nonces.Set(id, u.Nonce); err != nil {
			return err
		}
	}
	for _, u := range update.Codes {
		id, _, err := s.addressIndex.GetOrAdd(u.Account)
		if err != nil {
			return err
		}
		if err := s.codes.Set(id, u.Code); err != nil {
			return err
		}
		if err := s.codeHashes.Set(id, codeHash(u.Code)); err != nil {
			return err
		}
	}
	for _, u := range update.Slots {
		addrId, _, err := s.addressIndex.GetOrAdd(u.Account)
		if err != nil {
			return err
		}
		slotId, _, err := s.slotIndex.GetOrAdd(common.AddressKey{Address: addrId, Key: u.Key})
		if err != nil {
			return err
		}
		current, err := s.reincarnation.Get(addrId)
		if err != nil {
			return err
		}
		if err := s.slots.Set(slotId, store.ReincarnatedValue{Reincarnation: current, Value: u.Value}); err != nil {
			return err
		}
	}
	return nil
}

func (s *schema3) GetHash() (common.Hash, error) {
	var hashes [][]byte
	collect := func(h common.Hash, err error) error {
		if err != nil {
			return err
		}
		hashes = append(hashes, h[:])
		return nil
	}

	if err := collect(s.addressIndex.GetHash()); err != nil {
		return common.Hash{}, err
	}
	if err := collect(s.balances.GetHash()); err != nil {
		return common.Hash{}, err
	}
	if err := collect(s.nonces.GetHash()); err != nil {
		return common.Hash{}, err
	}
	if err := collect(s.accountStates.GetHash()); err != nil {
		return common.Hash{}, err
	}
	if err := collect(s.codeHashes.GetHash()); err != nil {
		return common.Hash{}, err
	}
	if err := collect(s.reincarnation.GetHash()); err != nil {
		return common.Hash{}, err
	}
	if err := collect(s.slotIndex.GetHash()); err != nil {
		return common.Hash{}, err
	}
	if err := collect(s.slots.GetHash()); err != nil {
		return common.Hash{}, err
	}
	if err := collect(s.codes.GetHash()); err != nil {
		return common.Hash{}, err
	}
	return common.Sha256Concat(hashes...), nil
}

func (s *schema3) Flush() error {
	return flushAll(s.addressIndex, s.slotIndex, s.balances, s.nonces, s.accountStates, s.codeHashes, s.reincarnation, s.slots, s.codes)
}

func (s *schema3) Close() error {
	err := closeAll(s.addressIndex, s.slotIndex, s.balances, s.nonces, s.accountStates, s.codeHashes, s.reincarnation, s.slots, s.codes)
	if ctxErr := s.b.ctx.Close(); err == nil {
		err = ctxErr
	}
	return err
}
