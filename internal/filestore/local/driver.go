// Package local provides a directory-backed implementation of
// filestore.Store on top of an afero filesystem.
package local

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/koustreak/dbdeck/internal/filestore"
	"github.com/koustreak/dbdeck/internal/logger"
	"github.com/spf13/afero"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Driver stores objects as files below a root directory.
// It is safe for concurrent use as long as callers write distinct keys.
type Driver struct {
	fs   afero.Fs
	root string
	log  *logger.Logger
}

var _ filestore.Store = (*Driver)(nil)

// New returns a Driver rooted at cfg.Dir, creating the directory when it is
// missing. A nil fsys selects the OS filesystem.
func New(cfg *filestore.Config, fsys afero.Fs, log *logger.Logger) (*Driver, error) {
	if cfg.Provider != "" && cfg.Provider != filestore.ProviderLocal {
		return nil, errs.Newf(errs.ErrKindInvalidConfig, "local driver given provider %q", cfg.Provider)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if log == nil {
		log = logger.Nop()
	}

	root := filepath.Clean(cfg.Dir)
	if err := fsys.MkdirAll(root, dirPerm); err != nil {
		return nil, mapError(err, "failed to create export directory")
	}

	return &Driver{fs: fsys, root: root, log: log.ForComponent("filestore.local")}, nil
}

func (d *Driver) path(key string) (string, string, error) {
	key, err := filestore.CleanKey(key)
	if err != nil {
		return "", "", err
	}
	return key, filepath.Join(d.root, filepath.FromSlash(key)), nil
}

// Ping checks that the root directory still exists.
func (d *Driver) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return mapError(err, "ping failed")
	}
	fi, err := d.fs.Stat(d.root)
	if err != nil {
		return mapError(err, "ping failed")
	}
	if !fi.IsDir() {
		return errs.Newf(errs.ErrKindInvalidConfig, "%s is not a directory", d.root)
	}
	return nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}

// Put writes r to the file for key. The size argument is ignored; the file
// holds whatever r yields until EOF.
func (d *Driver) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) (*filestore.ObjectInfo, error) {
	key, p, err := d.path(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, mapError(err, "failed to write object")
	}

	if err := d.fs.MkdirAll(filepath.Dir(p), dirPerm); err != nil {
		return nil, mapError(err, "failed to create object directory")
	}

	f, err := d.fs.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm)
	if err != nil {
		return nil, mapError(err, "failed to create object")
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = d.fs.Remove(p)
		return nil, mapError(err, "failed to write object")
	}

	if contentType == "" {
		contentType = filestore.ContentTypeFor(key)
	}
	d.log.DebugWith("wrote object", map[string]any{"path": p, "size": n})

	fi, err := d.fs.Stat(p)
	if err != nil {
		return nil, mapError(err, "failed to stat object")
	}
	info := toInfo(key, fi)
	info.ContentType = contentType
	return info, nil
}

// Get opens the file for key.
// The caller MUST call Object.Close() after reading.
func (d *Driver) Get(ctx context.Context, key string) (filestore.Object, error) {
	key, p, err := d.path(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, mapError(err, "failed to get object")
	}

	f, err := d.fs.Open(p)
	if err != nil {
		return nil, mapError(err, "failed to get object")
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, mapError(err, "failed to stat object after get")
	}
	if fi.IsDir() {
		f.Close()
		return nil, errs.Newf(errs.ErrKindNotFound, "object %q not found", key)
	}

	return &object{ReadCloser: f, info: toInfo(key, fi)}, nil
}

// Stat returns metadata for the file behind key.
func (d *Driver) Stat(ctx context.Context, key string) (*filestore.ObjectInfo, error) {
	key, p, err := d.path(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, mapError(err, "failed to stat object")
	}

	fi, err := d.fs.Stat(p)
	if err != nil {
		return nil, mapError(err, "failed to stat object")
	}
	if fi.IsDir() {
		return nil, errs.Newf(errs.ErrKindNotFound, "object %q not found", key)
	}
	return toInfo(key, fi), nil
}

// List walks the root directory and returns regular files whose key starts
// with opts.Prefix, ordered by key.
func (d *Driver) List(ctx context.Context, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	var results []filestore.ObjectInfo

	err := afero.Walk(d.fs, d.root, func(p string, fi fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(d.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, opts.Prefix) {
			results = append(results, *toInfo(key, fi))
		}
		return nil
	})
	if err != nil {
		return nil, mapError(err, "failed to list objects")
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// URL returns a file:// URL for the object. ttl is ignored.
func (d *Driver) URL(ctx context.Context, key string, _ time.Duration) (string, error) {
	if _, err := d.Stat(ctx, key); err != nil {
		return "", err
	}
	_, p, _ := d.path(key)
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return "file://" + path.Clean(filepath.ToSlash(p)), nil
}

func toInfo(key string, fi fs.FileInfo) *filestore.ObjectInfo {
	return &filestore.ObjectInfo{
		Key:          key,
		Size:         fi.Size(),
		ContentType:  filestore.ContentTypeFor(key),
		LastModified: fi.ModTime().UTC(),
	}
}

func mapError(err error, msg string) *errs.Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	case errors.Is(err, fs.ErrNotExist):
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	case errors.Is(err, fs.ErrPermission):
		return errs.Wrap(errs.ErrKindPermissionDenied, msg, err)
	}
	return errs.Wrap(errs.ErrKindUnknown, msg, err)
}

type object struct {
	io.ReadCloser
	info *filestore.ObjectInfo
}

func (o *object) Info() *filestore.ObjectInfo {
	return o.info
}
