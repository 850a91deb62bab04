// Package filesystem implements storagedriver.StorageDriver backed by a
// local directory tree.
package filesystem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/ebkalderon/deck/storagedriver"
)

// Driver is a storagedriver.StorageDriver backed by a local filesystem.
// Every path is a subpath of RootDirectory.
type Driver struct {
	rootDirectory string
}

// New constructs a Driver rooted at rootDirectory. The directory need not
// already exist; it is created on first write.
func New(rootDirectory string) *Driver {
	return &Driver{rootDirectory: rootDirectory}
}

// GetContent retrieves the content stored at path as a []byte.
func (d *Driver) GetContent(ctx context.Context, p string) ([]byte, error) {
	rc, err := d.Reader(ctx, p, 0)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// PutContent stores content at path via a temp-file-then-rename, so a
// concurrent reader never observes a partially-written file.
func (d *Driver) PutContent(ctx context.Context, subPath string, content []byte) error {
	tempPath := fmt.Sprintf("%s.%s.tmp", subPath, uuid.NewString())

	writer, err := d.Writer(ctx, tempPath, false)
	if err != nil {
		return err
	}
	defer writer.Close()

	if _, err := writer.Write(content); err != nil {
		cErr := writer.Cancel()
		return errors.Join(err, cErr)
	}
	if err := writer.Commit(); err != nil {
		return err
	}

	if err := d.Move(ctx, tempPath, subPath); err != nil {
		dErr := d.Delete(ctx, tempPath)
		return errors.Join(err, dErr)
	}

	return nil
}

// Reader retrieves an io.ReadCloser for the content stored at path,
// starting at the given byte offset.
func (d *Driver) Reader(_ context.Context, p string, offset int64) (io.ReadCloser, error) {
	file, err := os.OpenFile(d.fullPath(p), os.O_RDONLY, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storagedriver.PathNotFoundError{Path: p}
		}
		return nil, err
	}

	seekPos, err := file.Seek(offset, io.SeekStart)
	if err != nil {
		file.Close()
		return nil, err
	} else if seekPos < offset {
		file.Close()
		return nil, storagedriver.InvalidOffsetError{Path: p, Offset: offset}
	}

	return file, nil
}

// Writer returns a FileWriter for path, creating parent directories as
// needed.
func (d *Driver) Writer(_ context.Context, subPath string, append bool) (storagedriver.FileWriter, error) {
	fullPath := d.fullPath(subPath)
	if err := os.MkdirAll(path.Dir(fullPath), 0o777); err != nil {
		return nil, err
	}

	fp, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE, 0o666)
	if err != nil {
		return nil, err
	}

	var offset int64
	if !append {
		if err := fp.Truncate(0); err != nil {
			fp.Close()
			return nil, err
		}
	} else {
		n, err := fp.Seek(0, io.SeekEnd)
		if err != nil {
			fp.Close()
			return nil, err
		}
		offset = n
	}

	return newFileWriter(fp, offset), nil
}

// Stat returns the FileInfo for path.
func (d *Driver) Stat(_ context.Context, subPath string) (storagedriver.FileInfo, error) {
	fi, err := os.Stat(d.fullPath(subPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storagedriver.PathNotFoundError{Path: subPath}
		}
		return nil, err
	}

	return fileInfo{path: subPath, FileInfo: fi}, nil
}

// List returns the direct descendants of path.
func (d *Driver) List(_ context.Context, subPath string) ([]string, error) {
	dir, err := os.Open(d.fullPath(subPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storagedriver.PathNotFoundError{Path: subPath}
		}
		return nil, err
	}
	defer dir.Close()

	names, err := dir.Readdirnames(0)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(names))
	for _, name := range names {
		keys = append(keys, path.Join(subPath, name))
	}
	return keys, nil
}

// Move moves sourcePath to destPath, the rename being the atomic commit
// point for the store's write protocol (spec.md §4.1).
func (d *Driver) Move(_ context.Context, sourcePath, destPath string) error {
	source := d.fullPath(sourcePath)
	dest := d.fullPath(destPath)

	if _, err := os.Stat(source); os.IsNotExist(err) {
		return storagedriver.PathNotFoundError{Path: sourcePath}
	}

	if err := os.MkdirAll(path.Dir(dest), 0o777); err != nil {
		return err
	}

	return os.Rename(source, dest)
}

// Delete recursively deletes path and everything beneath it.
func (d *Driver) Delete(_ context.Context, subPath string) error {
	fullPath := d.fullPath(subPath)

	if _, err := os.Stat(fullPath); err != nil {
		if os.IsNotExist(err) {
			return storagedriver.PathNotFoundError{Path: subPath}
		}
		return err
	}

	return os.RemoveAll(fullPath)
}

// Walk traverses the tree rooted at path.
func (d *Driver) Walk(ctx context.Context, p string, f storagedriver.WalkFunc) error {
	return storagedriver.WalkFallback(ctx, d, p, f)
}

func (d *Driver) fullPath(subPath string) string {
	return path.Join(d.rootDirectory, subPath)
}

// Normalize strips write permissions from path and zeroes its modification
// and access times, so that committed store entries are bit-for-bit
// reproducible independent of when or by whom they were built.
func (d *Driver) Normalize(_ context.Context, subPath string) error {
	full := d.fullPath(subPath)

	if err := os.Chmod(full, 0o444); err != nil {
		if os.IsNotExist(err) {
			return storagedriver.PathNotFoundError{Path: subPath}
		}
		return err
	}

	return os.Chtimes(full, time.Unix(0, 0), time.Unix(0, 0))
}

type fileInfo struct {
	os.FileInfo
	path string
}

func (fi fileInfo) Path() string { return fi.path }

func (fi fileInfo) Size() int64 {
	if fi.IsDir() {
		return 0
	}
	return fi.FileInfo.Size()
}

func (fi fileInfo) IsDir() bool { return fi.FileInfo.IsDir() }

type fileWriter struct {
	file      *os.File
	size      int64
	bw        *bufio.Writer
	closed    bool
	committed bool
	cancelled bool
}

func newFileWriter(file *os.File, size int64) *fileWriter {
	return &fileWriter{file: file, size: size, bw: bufio.NewWriter(file)}
}

func (fw *fileWriter) Write(p []byte) (int, error) {
	if fw.closed {
		return 0, errors.New("fileWriter: already closed")
	} else if fw.committed {
		return 0, errors.New("fileWriter: already committed")
	} else if fw.cancelled {
		return 0, errors.New("fileWriter: already cancelled")
	}

	n, err := fw.bw.Write(p)
	fw.size += int64(n)
	return n, err
}

func (fw *fileWriter) Size() int64 { return fw.size }

func (fw *fileWriter) Close() error {
	if fw.closed {
		return errors.New("fileWriter: already closed")
	}
	if err := fw.bw.Flush(); err != nil {
		return err
	}
	if err := fw.file.Sync(); err != nil {
		return err
	}
	if err := fw.file.Close(); err != nil {
		return err
	}
	fw.closed = true
	return nil
}

func (fw *fileWriter) Cancel() error {
	if fw.closed {
		return errors.New("fileWriter: already closed")
	}
	fw.cancelled = true
	fw.file.Close()
	return os.Remove(fw.file.Name())
}

func (fw *fileWriter) Commit() error {
	if fw.closed {
		return errors.New("fileWriter: already closed")
	} else if fw.committed {
		return errors.New("fileWriter: already committed")
	} else if fw.cancelled {
		return errors.New("fileWriter: already cancelled")
	}

	if err := fw.bw.Flush(); err != nil {
		return err
	}
	if err := fw.file.Sync(); err != nil {
		return err
	}
	fw.committed = true
	return nil
}
