package logging

import (
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
)

const archiveSuffix = ".zst"

var (
	sharedEncoder *zstd.Encoder
	sharedOnce    sync.Once
	sharedErr     error
)

func encoder() (*zstd.Encoder, error) {
	sharedOnce.Do(func() {
		sharedEncoder, sharedErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	return sharedEncoder, sharedErr
}

// archiveFile compresses path to path+".zst" with zstd and removes the
// uncompressed original. A missing path is not an error — a log file may
// rotate out before any byte was ever written to it.
func archiveFile(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	enc, err := encoder()
	if err != nil {
		return err
	}

	compressed := enc.EncodeAll(data, nil)
	if err := os.WriteFile(path+archiveSuffix, compressed, 0644); err != nil {
		return err
	}

	return os.Remove(path)
}
