// Package fileutil holds the small file primitives the State Updater builds
// its backup and rollback guarantees on.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyFileVerified copies src to dst with src's permission bits, then reads
// dst back and compares its SHA-256 with the source's. dst is removed when
// the copy cannot be verified.
func CopyFileVerified(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create copy: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	want := sha256.New()
	if _, err = io.Copy(out, io.TeeReader(in, want)); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	if err = out.Sync(); err != nil {
		_ = out.Close()
		return fmt.Errorf("sync copy: %w", err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("close copy: %w", err)
	}

	got, err := fileDigest(dst)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, want.Sum(nil)) {
		return fmt.Errorf("copy of %s does not match the source", filepath.Base(src))
	}
	return nil
}

func fileDigest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reopen copy: %w", err)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("read back copy: %w", err)
	}
	return h.Sum(nil), nil
}

// WriteFileAtomic writes data to a hidden temp file beside path and renames it
// into place. Readers see the old content or the new content, never a mix.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Chmod(mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// RestoreFile puts backup's content and permissions back at dst atomically.
func RestoreFile(backup, dst string) error {
	data, err := os.ReadFile(backup)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}
	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(backup); statErr == nil {
		mode = info.Mode().Perm()
	}
	return WriteFileAtomic(dst, data, mode)
}
