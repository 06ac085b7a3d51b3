package opssdk

import (
	"sync"
	"time"
)

// CacheMode says whether responses may be reused. Only CacheNone exists:
// every read goes to the backend.
type CacheMode int

const CacheNone CacheMode = 0

// FetchPolicy is the explicit caching, retry and write-ordering contract of
// a Session.
type FetchPolicy struct {
	Cache CacheMode

	// RetryIdempotent retries GET requests that failed in transit or with a
	// 5xx, with exponential backoff. Writes are never retried.
	RetryIdempotent bool
	MaxRetries      uint64
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration

	// SerializeWrites runs Update, Remove and Action calls against the same
	// record one at a time.
	SerializeWrites bool
}

// DefaultPolicy retries reads twice and serialises writes per record.
func DefaultPolicy() FetchPolicy {
	return FetchPolicy{
		Cache:           CacheNone,
		RetryIdempotent: true,
		MaxRetries:      2,
		InitialBackoff:  200 * time.Millisecond,
		MaxBackoff:      2 * time.Second,
		SerializeWrites: true,
	}
}

// keyedMutex hands out one lock per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
