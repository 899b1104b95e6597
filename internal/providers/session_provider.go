package providers

import (
	"errors"
	"fmt"

	"github.com/coocood/freecache"

	"snoozed/internal/structures"
)

// SessionProviderInterface holds short-lived state that must not outlive the
// process: pending notifications and the recovery flag.
// ErrSessionEntryTooLarge is returned by Set when a value exceeds the
// per-entry limit of the session store.
var ErrSessionEntryTooLarge = errors.New("session entry too large")

type SessionProviderInterface interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
	Remove(key string)
}

type SessionProvider struct {
	cache *freecache.Cache
	ttl   int
}

func NewSessionProvider(conf *structures.Config, logger Logger) SessionProviderInterface {
	size := max(conf.Session.Size, 1) * 1024 * 1024
	ttl := int(conf.Session.TTL.Seconds())
	logger.Infof(TypeApp, "Session store initialized: %dMB, TTL=%ds", size/1024/1024, ttl)
	return &SessionProvider{
		cache: freecache.NewCache(size),
		ttl:   ttl,
	}
}

func (s *SessionProvider) Get(key string) ([]byte, bool) {
	val, err := s.cache.Get([]byte(key))
	if err != nil {
		return nil, false
	}
	return val, true
}

func (s *SessionProvider) Set(key string, value []byte) error {
	if err := s.cache.Set([]byte(key), value, s.ttl); err != nil {
		if errors.Is(err, freecache.ErrLargeEntry) || errors.Is(err, freecache.ErrLargeKey) {
			return fmt.Errorf("%w: %s", ErrSessionEntryTooLarge, key)
		}
		return err
	}
	return nil
}

func (s *SessionProvider) Remove(key string) {
	s.cache.Del([]byte(key))
}
