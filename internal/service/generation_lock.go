package service

import (
	"fmt"
	"sync"
)

// generationLock serialises timetable generation per department section.
// Concurrent requests for a held key are rejected, not queued; the caller
// maps a failed acquire to a conflict response. Distinct keys never block
// each other.
type generationLock struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func newGenerationLock() *generationLock {
	return &generationLock{inFlight: make(map[string]struct{})}
}

func generationKey(departmentID, section string) string {
	return fmt.Sprintf("%s:%s", departmentID, section)
}

// TryAcquire claims the key, reporting false when a run already holds it.
func (l *generationLock) TryAcquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.inFlight[key]; held {
		return false
	}
	l.inFlight[key] = struct{}{}
	return true
}

// Release frees the key for the next run.
func (l *generationLock) Release(key string) {
	l.mu.Lock()
	delete(l.inFlight, key)
	l.mu.Unlock()
}
