// Package fileutil writes run artifacts. Every artifact is created
// exclusively: an existing file is reported, never replaced.
package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrExists reports that a write-once target is already present.
var ErrExists = errors.New("file already exists")

func create(path string, mode os.FileMode) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrExists)
	}
	return f, err
}

// finish syncs and closes f, removing the partial file when fill failed.
func finish(f *os.File, fill error) error {
	err := fill
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil && fill != nil {
		_ = os.Remove(f.Name())
	}
	return err
}

// WriteOnce creates path and writes data to it.
func WriteOnce(path string, data []byte, mode os.FileMode) error {
	f, err := create(path, mode)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return finish(f, err)
}

// WriteJSONOnce writes value as two-space indented JSON with a trailing newline.
func WriteJSONOnce(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return WriteOnce(path, append(data, '\n'), 0o644)
}

// CopyOnce copies src to a new file dst and returns the SHA256 of the
// copied bytes. A short copy removes dst.
func CopyOnce(src, dst string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return "", err
	}

	out, err := create(dst, 0o644)
	if err != nil {
		return "", err
	}
	sum := sha256.New()
	n, err := io.Copy(io.MultiWriter(out, sum), in)
	if err == nil && n != info.Size() {
		err = fmt.Errorf("copy %s: wrote %d of %d bytes", src, n, info.Size())
	}
	if err := finish(out, err); err != nil {
		return "", err
	}
	return hex.EncodeToString(sum.Sum(nil)), nil
}
