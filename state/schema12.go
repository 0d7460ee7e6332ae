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
	"github.com/Fantom-foundation/Carmen/go/backend/multimap"
	"github.com/Fantom-foundation/Carmen/go/backend/store"
	"github.com/Fantom-foundation/Carmen/go/common"
)

// schema12 implements Schema1 and Schema2 (§4.9): both hold an address
// index, a key index, a (AddressId, KeyId) -> SlotId slot index, a slot
// value store, and a reverse address -> slot-set multimap used to clear
// storage on account reset. The two schemas share this exact layout and
// differ only in whether GetHash folds the key/slot index hashes in
// (§4.9.5).
type schema12 struct {
	schema Schema
	b      *backends

	addressIndex index.Index[common.Address]
	keyIndex     index.Index[common.Key]
	slotIndex    index.Index[common.AddressKeyId]

	balances      *store.Store[common.AddressId, common.Balance]
	nonces        *store.Store[common.AddressId, common.Nonce]
	accountStates *store.Store[common.AddressId, common.AccountState]
	codeHashes    *store.Store[common.AddressId, common.Hash]
	slots         *store.Store[common.SlotId, common.Value]

	codes *depot.Depot

	addressToSlots multimap.MultiMap[common.AddressId, common.SlotId]
}

func newSchema12(schema Schema, params Parameters) (*schema12, error) {
	b := newBackends(params)

	addressIndex, err := openIndex[common.Address](b, prefixAddressIndex)
	if err != nil {
		return nil, err
	}
	keyIndex, err := openIndex[common.Key](b, prefixKeyIndex)
	if err != nil {
		return nil, err
	}
	slotIndex, err := openIndex[common.AddressKeyId](b, prefixSlotIndex)
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
	slots, err := openStore[common.SlotId](b, "slots", store.ValueCodec{})
	if err != nil {
		return nil, err
	}

	codes, err := openDepot(b, prefixCodeDepot)
	if err != nil {
		return nil, err
	}

	return &schema12{
		schema:         schema,
		b:              b,
		addressIndex:   addressIndex,
		keyIndex:       keyIndex,
		slotIndex:      slotIndex,
		balances:       balances,
		nonces:         nonces,
		accountStates:  accountStates,
		codeHashes:     codeHashes,
		slots:          slots,
		codes:          codes,
		addressToSlots: multimap.NewMemory[common.AddressId, common.SlotId](),
	}, nil
}

func (s *schema12) Exists(addr common.Address) (bool, error) {
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

func (s *schema12) GetBalance(addr common.Address) (common.Balance, error) {
	id, found, err := s.addressIndex.Get(addr)
	if err != nil || !found {
		return common.Balance{}, err
	}
	return s.balances.Get(id)
}

func (s *schema12) GetNonce(addr common.Address) (common.Nonce, error) {
	id, found, err := s.addressIndex.Get(addr)
	if err != nil || !found {
		return common.Nonce{}, err
	}
	return s.nonces.Get(id)
}

func (s *schema12) GetCode(addr common.Address) (common.Code, error) {
	id, found, err := s.addressIndex.Get(addr)
	if err != nil || !found {
		return nil, err
	}
	return s.codes.Get(id)
}

func (s *schema12) GetCodeHash(addr common.Address) (common.Hash, error) {
	id, found, err := s.addressIndex.Get(addr)
	if err != nil || !found {
		return common.Hash{}, err
	}
	return s.codeHashes.Get(id)
}

func (s *schema12) GetStorage(addr common.Address, key common.Key) (common.Value, error) {
	addrId, found, err := s.addressIndex.Get(addr)
	if err != nil || !found {
		return common.Value{}, err
	}
	keyId, found, err := s.keyIndex.Get(key)
	if err != nil || !found {
		return common.Value{}, err
	}
	slotId, found, err := s.slotIndex.Get(common.AddressKeyId{Address: addrId, Key: keyId})
	if err != nil || !found {
		return common.Value{}, err
	}
	return s.slots.Get(slotId)
}

// clearSlots resets every currently live slot of addrId to zero and drops
// its slot set, per §4.9.3's account create/delete semantics for
// schemas 1 and 2.
func (s *schema12) clearSlots(addrId common.AddressId) error {
	var inner error
	err := s.addressToSlots.ForEach(addrId, func(slotId common.SlotId) {
		if inner != nil {
			return
		}
		inner = s.slots.Set(slotId, common.Value{})
	})
	if err != nil {
		return err
	}
	if inner != nil {
		return inner
	}
	return s.addressToSlots.EraseAll(addrId)
}

func (s *schema12) Apply(block common.BlockId, update *common.Update) error {
	for _, addr := range update.DeletedAccounts {
		id, _, err := s.addressIndex.GetOrAdd(addr)
		if err != nil {
			return err
		}
		if err := s.accountStates.Set(id, common.Unknown); err != nil {
			return err
		}
		if err := s.clearSlots(id); err != nil {
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
		if err := s.clearSlots(id); err != nil {
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
		hash := common.Hash(codeHash(u.Code))
		if err := s.codeHashes.Set(id, hash); err != nil {
			return err
		}
	}
	for _, u := range update.Slots {
		addrId, _, err := s.addressIndex.GetOrAdd(u.Account)
		if err != nil {
			return err
		}
		keyId, _, err := s.keyIndex.GetOrAdd(u.Key)
		if err != nil {
			return err
		}
		slotId, isNew, err := s.slotIndex.GetOrAdd(common.AddressKeyId{Address: addrId, Key: keyId})
		if err != nil {
			return err
		}
		if isNew {
			if err := s.addressToSlots.Insert(addrId, slotId); err != nil {
				return err
			}
		}
		if err := s.slots.Set(slotId, u.Value); err != nil {
			return err
		}
	}
	return nil
}

func (s *schema12) GetHash() (common.Hash, error) {
	hashes := [][]byte{}
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
	if s.schema == Schema1 {
		if err := collect(s.keyIndex.GetHash()); err != nil {
			return common.Hash{}, err
		}
		if err := collect(s.slotIndex.GetHash()); err != nil {
			return common.Hash{}, err
		}
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
	if err := collect(s.slots.GetHash()); err != nil {
		return common.Hash{}, err
	}
	if err := collect(s.codes.GetHash()); err != nil {
		return common.Hash{}, err
	}
	return common.Sha256Concat(hashes...), nil
}

func (s *schema12) Flush() error {
	return flushAll(s.addressIndex, s.keyIndex, s.slotIndex, s.balances, s.nonces, s.accountStates, s.codeHashes, s.slots, s.codes)
}

func (s *schema12) Close() error {
	err := closeAll(s.addressIndex, s.keyIndex, s.slotIndex, s.balances, s.nonces, s.accountStates, s.codeHashes, s.slots, s.codes)
	if ctxErr := s.b.ctx.Close(); err == nil {
		err = ctxErr
	}
	return err
}
