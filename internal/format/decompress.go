package format

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// decoderPool holds reusable zstd decoders for tar.zst archives.
var decoderPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil
		}
		return dec
	},
}

// getDecoder returns a zstd decoder reading from r and a release func that
// returns it to the pool. If an error is returned, nothing needs releasing.
func getDecoder(r io.Reader) (*zstd.Decoder, func(), error) {
	dec, ok := decoderPool.Get().(*zstd.Decoder)
	if !ok || dec == nil {
		// Pool's New failed; try a one-off decoder.
		newDec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, nil, err
		}
		return newDec, newDec.Close, nil
	}
	if err := dec.Reset(r); err != nil {
		dec.Close()
		newDec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, nil, err
		}
		return newDec, newDec.Close, nil
	}
	return dec, func() {
		_ = dec.Reset(nil) //nolint:errcheck // clearing state before pool return
		decoderPool.Put(dec)
	}, nil
}
