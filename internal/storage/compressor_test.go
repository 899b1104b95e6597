package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZstdCompression_Roundtrip(t *testing.T) {
	c, err := NewZstdCompressor()
	require.NoError(t, err)
	defer c.Close()

	original := []byte(`{"schemaVersion":2,"items":{},"schedule":{}}`)
	compressed, err := c.Compress(original)
	require.NoError(t, err)
	assert.NotEqual(t, original, compressed)
	assert.True(t, bytes.HasPrefix(compressed, zstdMagic))

	decompressed, err := c.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, original, decompressed)
}

func TestZstdCompression_LargeData(t *testing.T) {
	c, err := NewZstdCompressor()
	require.NoError(t, err)
	defer c.Close()

	original := bytes.Repeat([]byte(`{"url":"https://example.com"}`), 50_000)
	compressed, err := c.Compress(original)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(original)/2)

	decompressed, err := c.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, original, decompressed)
}

func TestZstdCompression_PlainInputPassesThrough(t *testing.T) {
	c, err := NewZstdCompressor()
	require.NoError(t, err)
	defer c.Close()

	out, err := c.Decompress([]byte(`{"tabCount":0}`))
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"tabCount":0}`), out)
}

func TestZstdCompression_DecompressDamagedFrame(t *testing.T) {
	c, err := NewZstdCompressor()
	require.NoError(t, err)
	defer c.Close()

	damaged := append(append([]byte(nil), zstdMagic...), 0xff, 0xfe, 0xfd, 0x00)
	_, err = c.Decompress(damaged)
	assert.Error(t, err)
}

func TestPlainCompression(t *testing.T) {
	c, err := NewCompressor(false)
	require.NoError(t, err)

	out, err := c.Compress([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), out)

	_, err = c.Decompress(append(append([]byte(nil), zstdMagic...), 1, 2, 3))
	assert.Error(t, err)
}
