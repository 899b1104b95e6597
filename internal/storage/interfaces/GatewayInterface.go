package interfaces

import (
	"context"
	"errors"
)

// ErrCorruptStore is returned by reads while the backing data could not be
// decoded. The next successful Set replaces it.
var ErrCorruptStore = errors.New("store file is corrupt")

// ChangeListener receives the keys touched by a successful write.
type ChangeListener func(keys []string)

// GatewayInterface is a key-value store of JSON documents.
type GatewayInterface interface {
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, values map[string][]byte) error
	Remove(ctx context.Context, keys ...string) error
	OnChange(listener ChangeListener) (cancel func())
	Close() error
}

type CompressorInterface interface {
	Compress(val []byte) ([]byte, error)
	Decompress(val []byte) ([]byte, error)
	Close()
}
