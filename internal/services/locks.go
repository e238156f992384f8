// Package services – per-recipe write serialization.
//
// The server is logically single-writer-per-recipe: the moderation state
// machine and the rating aggregator must never race on the same record,
// while mutations to different recipes proceed in parallel. RecipeLocks
// provides that guarantee with one mutex per recipe id, shared by every
// service that mutates recipes.
package services

import "sync"

// RecipeLocks hands out a mutex per recipe id. Mutexes are retained for
// the life of the process; the per-id footprint is one mutex, which is
// acceptable at catalog scale.
type RecipeLocks struct {
	m sync.Map // recipe id -> *sync.Mutex
}

// NewRecipeLocks returns an empty lock table.
func NewRecipeLocks() *RecipeLocks { return &RecipeLocks{} }

// Lock acquires the mutex for id and returns the matching unlock func.
//
//	unlock := locks.Lock(recipeID)
//	defer unlock()
func (l *RecipeLocks) Lock(id string) func() {
	v, _ := l.m.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
