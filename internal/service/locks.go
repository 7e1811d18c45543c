package service

import (
	"fmt"
	"sync"
)

// EntityLocks hands out one mutex per entity key so transitions touching the
// same equipment row or member ledger are serialized in-process. Lock order is
// fixed: equipment before member, so cross-entity transitions cannot deadlock.
// Mutexes are never reclaimed; the table is bounded by the number of entities.
type EntityLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEntityLocks() *EntityLocks {
	return &EntityLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *EntityLocks) get(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

func (l *EntityLocks) lockEquipment(id int32) func() {
	m := l.get(fmt.Sprintf("equipment:%d", id))
	m.Lock()
	return m.Unlock
}

func (l *EntityLocks) lockMember(id int32) func() {
	m := l.get(fmt.Sprintf("member:%d", id))
	m.Lock()
	return m.Unlock
}

// lockBoth acquires the equipment lock, then the member lock.
func (l *EntityLocks) lockBoth(equipmentID, memberID int32) func() {
	unlockEquipment := l.lockEquipment(equipmentID)
	unlockMember := l.lockMember(memberID)
	return func() {
		unlockMember()
		unlockEquipment()
	}
}
