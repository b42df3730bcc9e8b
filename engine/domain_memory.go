package engine

import (
	"sync"
	"time"
)

type domainEntry struct {
	engineName string
	expiresAt  time.Time
}

// DomainMemory remembers which engine last won the race for each host so
// repeat audits of the same site skip straight to it. Entries expire after
// ttl. A nil *DomainMemory is valid and remembers nothing.
type DomainMemory struct {
	store    sync.Map // host (string) -> *domainEntry
	ttl      time.Duration
	done     chan struct{}
	stopOnce sync.Once
}

// NewDomainMemory creates a DomainMemory and starts a goroutine that prunes
// expired entries every interval.
func NewDomainMemory(ttl, interval time.Duration) *DomainMemory {
	if interval <= 0 {
		interval = time.Hour
	}
	dm := &DomainMemory{
		ttl:  ttl,
		done: make(chan struct{}),
	}
	go dm.cleanupLoop(interval)
	return dm
}

// Get returns the remembered engine for host, or "" if none or expired.
func (dm *DomainMemory) Get(host string) string {
	if dm == nil {
		return ""
	}
	val, ok := dm.store.Load(host)
	if !ok {
		return ""
	}
	entry := val.(*domainEntry)
	if time.Now().After(entry.expiresAt) {
		dm.store.Delete(host)
		return ""
	}
	return entry.engineName
}

// Set records which engine succeeded for host.
func (dm *DomainMemory) Set(host, engineName string) {
	if dm == nil || host == "" {
		return
	}
	dm.store.Store(host, &domainEntry{
		engineName: engineName,
		expiresAt:  time.Now().Add(dm.ttl),
	})
}

// Delete forgets host.
func (dm *DomainMemory) Delete(host string) {
	if dm == nil {
		return
	}
	dm.store.Delete(host)
}

// Stop terminates the cleanup goroutine. It is safe to call more than once.
func (dm *DomainMemory) Stop() {
	if dm == nil {
		return
	}
	dm.stopOnce.Do(func() { close(dm.done) })
}

func (dm *DomainMemory) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-dm.done:
			return
		case <-ticker.C:
			dm.prune(time.Now())
		}
	}
}

func (dm *DomainMemory) prune(now time.Time) {
	dm.store.Range(func(key, value any) bool {
		if now.After(value.(*domainEntry).expiresAt) {
			dm.store.Delete(key)
		}
		return true
	})
}
