package storage

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	json "github.com/goccy/go-json"

	"snoozed/internal/events"
	"snoozed/internal/providers"
	"snoozed/internal/storage/interfaces"
)

// FileGateway keeps every key in one JSON object on disk, optionally zstd
// compressed, and rewrites the whole file atomically on each change.
type FileGateway struct {
	mu         sync.RWMutex
	path       string
	data       map[string]json.RawMessage
	corrupt    error
	compressor interfaces.CompressorInterface
	logger     providers.Logger
	listeners  *events.Registry[interfaces.ChangeListener]
}

func NewFileGateway(path string, compressor interfaces.CompressorInterface, logger providers.Logger) (*FileGateway, error) {
	g := &FileGateway{
		path:       path,
		data:       make(map[string]json.RawMessage),
		compressor: compressor,
		logger:     logger,
		listeners:  events.NewRegistry[interfaces.ChangeListener](),
	}
	if err := g.load(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *FileGateway) load() error {
	raw, err := os.ReadFile(g.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	decompressed, err := g.compressor.Decompress(raw)
	if err != nil {
		g.corrupt = fmt.Errorf("%w: %s", interfaces.ErrCorruptStore, err)
		g.logger.Errorf(providers.TypeApp, "Unable to decompress store %s: %s", g.path, err)
		return nil
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(decompressed, &data); err != nil || data == nil {
		g.corrupt = fmt.Errorf("%w: not a JSON object", interfaces.ErrCorruptStore)
		g.logger.Errorf(providers.TypeApp, "Store %s is not a JSON object, it will be replaced on next write", g.path)
		return nil
	}
	g.data = data
	return nil
}

func (g *FileGateway) Get(_ context.Context, keys ...string) (map[string][]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.corrupt != nil {
		return nil, g.corrupt
	}
	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if val, ok := g.data[key]; ok {
			out[key] = append([]byte(nil), val...)
		}
	}
	return out, nil
}

func (g *FileGateway) Set(_ context.Context, values map[string][]byte) error {
	for key, val := range values {
		if !json.Valid(val) {
			return fmt.Errorf("value for %s is not valid JSON", key)
		}
	}

	g.mu.Lock()
	next := g.copyData()
	for key, val := range values {
		next[key] = append(json.RawMessage(nil), val...)
	}
	err := g.commit(next)
	g.mu.Unlock()
	if err != nil {
		return err
	}

	g.notify(sortedKeys(values))
	return nil
}

func (g *FileGateway) Remove(_ context.Context, keys ...string) error {
	g.mu.Lock()
	next := g.copyData()
	var removed []string
	for _, key := range keys {
		if _, ok := next[key]; ok {
			delete(next, key)
			removed = append(removed, key)
		}
	}
	if len(removed) == 0 {
		g.mu.Unlock()
		return nil
	}
	err := g.commit(next)
	g.mu.Unlock()
	if err != nil {
		return err
	}

	g.notify(removed)
	return nil
}

func (g *FileGateway) OnChange(listener interfaces.ChangeListener) func() {
	return g.listeners.Subscribe(listener)
}

func (g *FileGateway) Close() error {
	g.compressor.Close()
	return nil
}

// copyData starts from an empty object while the file is corrupt.
func (g *FileGateway) copyData() map[string]json.RawMessage {
	next := make(map[string]json.RawMessage, len(g.data))
	if g.corrupt != nil {
		return next
	}
	for key, val := range g.data {
		next[key] = val
	}
	return next
}

func (g *FileGateway) commit(next map[string]json.RawMessage) error {
	if err := g.writeFile(next); err != nil {
		return err
	}
	g.data = next
	g.corrupt = nil
	return nil
}

func (g *FileGateway) writeFile(data map[string]json.RawMessage) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	payload, err := g.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := g.path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(payload)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, g.path)
}

func sortedKeys(values map[string][]byte) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (g *FileGateway) notify(keys []string) {
	if len(keys) == 0 {
		return
	}
	g.listeners.Emit(func(fn interfaces.ChangeListener) { fn(keys) })
}
