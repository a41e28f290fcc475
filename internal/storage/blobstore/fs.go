package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// FS stores content on the local filesystem with a 2-character fan-out
// layout: root/ab/cdef0123... Writes go through a temp file and rename so
// a key never exists half-written. With compression enabled, content is
// zstd-framed at rest.
type FS struct {
	root     string
	compress bool
}

func NewFS(root string, compress bool) *FS {
	return &FS{root: root, compress: compress}
}

func (b *FS) path(key string) string {
	if len(key) > 2 {
		return filepath.Join(b.root, key[:2], key[2:])
	}
	return filepath.Join(b.root, key)
}

func (b *FS) Has(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(b.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (b *FS) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	dest := b.path(key)
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("blob put mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("blob put tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	var w io.Writer = tmp
	var enc *zstd.Encoder
	if b.compress {
		enc, err = zstd.NewWriter(tmp)
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("blob put encoder: %w", err)
		}
		w = enc
	}

	if size >= 0 {
		_, err = io.CopyN(w, r, size)
	} else {
		_, err = io.Copy(w, r)
	}
	if err == nil && enc != nil {
		err = enc.Close()
	}
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("blob put write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("blob put close: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("blob put rename: %w", err)
	}
	return nil
}

func (b *FS) Open(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	f, err := os.Open(b.path(key))
	if err != nil {
		return nil, 0, err
	}
	if b.compress {
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, 0, fmt.Errorf("blob open decoder: %w", err)
		}
		return &decodedReader{rc: dec.IOReadCloser(), file: f}, -1, nil
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

type decodedReader struct {
	rc   io.ReadCloser
	file *os.File
}

func (d *decodedReader) Read(p []byte) (int, error) { return d.rc.Read(p) }

func (d *decodedReader) Close() error {
	err := d.rc.Close()
	if cerr := d.file.Close(); err == nil {
		err = cerr
	}
	return err
}
