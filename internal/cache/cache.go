// Package cache holds the per-user read caches in front of the invoice
// repository.
package cache

import (
	"context"
	"log/slog"
	"time"
)

type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// DeletePrefix drops every key starting with prefix and returns how many
	// were removed.
	DeletePrefix(prefix string) int
	Size() int
}

// Cleaner is implemented by caches whose expired entries can be swept.
type Cleaner interface {
	CleanExpired() int
}

// Janitor sweeps registered caches on a fixed interval until its context
// is cancelled.
type Janitor struct {
	caches []Cleaner
	done   chan struct{}
}

func NewJanitor(caches ...Cleaner) *Janitor {
	return &Janitor{caches: caches, done: make(chan struct{})}
}

// Run blocks until ctx is done.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	defer close(j.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				slog.DebugContext(ctx, "Cache entries expired", "component", "cache", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs one cleanup pass over every registered cache.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}

// Done is closed once Run has returned.
func (j *Janitor) Done() <-chan struct{} {
	return j.done
}

// UserKey namespaces key under userID so DeletePrefix(UserPrefix(userID))
// drops everything cached for that user.
func UserKey(userID, key string) string {
	return UserPrefix(userID) + key
}

func UserPrefix(userID string) string {
	return "user:" + userID + ":"
}
