package storage

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"snoozed/internal/storage/interfaces"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

type ZstdCompression struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func (z *ZstdCompression) Compress(val []byte) ([]byte, error) {
	return z.encoder.EncodeAll(val, make([]byte, 0, len(val)/2)), nil
}

// Decompress passes plain data through unchanged so a store written before
// compression was enabled still loads.
func (z *ZstdCompression) Decompress(val []byte) ([]byte, error) {
	if !bytes.HasPrefix(val, zstdMagic) {
		return val, nil
	}
	return z.decoder.DecodeAll(val, nil)
}

func (z *ZstdCompression) Close() {
	_ = z.encoder.Close()
	z.decoder.Close()
}

func NewZstdCompressor() (interfaces.CompressorInterface, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &ZstdCompression{encoder: encoder, decoder: decoder}, nil
}

type PlainCompression struct{}

func (PlainCompression) Compress(val []byte) ([]byte, error) { return val, nil }

func (PlainCompression) Decompress(val []byte) ([]byte, error) {
	if bytes.HasPrefix(val, zstdMagic) {
		return nil, fmt.Errorf("store is zstd compressed but persistence.compress is off")
	}
	return val, nil
}

func (PlainCompression) Close() {}

// NewCompressor picks zstd or pass-through from the persistence config.
func NewCompressor(compress bool) (interfaces.CompressorInterface, error) {
	if !compress {
		return PlainCompression{}, nil
	}
	return NewZstdCompressor()
}
