// Package minio provides a MinIO implementation of filestore.Store.
//
// Usage:
//
//	cfg := &filestore.Config{Provider: filestore.ProviderMinIO, Endpoint: "localhost:9000",
//		AccessKey: "minioadmin", SecretKey: "minioadmin", Bucket: "exports"}
//	store, err := minio.New(ctx, cfg, log)
//	if err != nil { ... }
//	defer store.Close()
package minio

import (
	"context"
	"io"
	"time"

	"github.com/koustreak/dbdeck/internal/errs"
	"github.com/koustreak/dbdeck/internal/filestore"
	"github.com/koustreak/dbdeck/internal/logger"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Driver is a MinIO implementation of filestore.Store bound to one bucket.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *miniogo.Client
	bucket string
	region string
	log    *logger.Logger
}

var _ filestore.Store = (*Driver)(nil)

// New connects to MinIO, creates the bucket when it does not exist yet and
// returns a Driver.
func New(ctx context.Context, cfg *filestore.Config, log *logger.Logger) (*Driver, error) {
	if cfg.Provider != filestore.ProviderMinIO {
		return nil, errs.Newf(errs.ErrKindInvalidConfig, "minio driver given provider %q", cfg.Provider)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create minio client", err)
	}

	d := &Driver{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		log:    log.ForComponent("filestore.minio"),
	}
	if err := d.ensureBucket(ctx); err != nil {
		return nil, err
	}
	d.log.Debugf("using bucket %s at %s", cfg.Bucket, cfg.Endpoint)
	return d, nil
}

func (d *Driver) ensureBucket(ctx context.Context) error {
	ok, err := d.client.BucketExists(ctx, d.bucket)
	if err != nil {
		return mapError(err, "failed to check bucket")
	}
	if ok {
		return nil
	}
	if err := d.client.MakeBucket(ctx, d.bucket, miniogo.MakeBucketOptions{Region: d.region}); err != nil {
		return mapError(err, "failed to create bucket")
	}
	d.log.Infof("created bucket %s", d.bucket)
	return nil
}

// Ping verifies the server is reachable and the bucket exists.
func (d *Driver) Ping(ctx context.Context) error {
	ok, err := d.client.BucketExists(ctx, d.bucket)
	if err != nil {
		return mapError(err, "ping failed")
	}
	if !ok {
		return errs.Newf(errs.ErrKindNotFound, "bucket %q does not exist", d.bucket)
	}
	return nil
}

// Close is a no-op; the SDK client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

// Put uploads r under key.
func (d *Driver) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*filestore.ObjectInfo, error) {
	key, err := filestore.CleanKey(key)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = filestore.ContentTypeFor(key)
	}

	up, err := d.client.PutObject(ctx, d.bucket, key, r, size, miniogo.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, mapError(err, "failed to upload object")
	}

	modified := up.LastModified
	if modified.IsZero() {
		modified = time.Now().UTC()
	}
	d.log.DebugWith("uploaded object", map[string]any{"bucket": d.bucket, "key": key, "size": up.Size})

	return &filestore.ObjectInfo{
		Key:          key,
		Size:         up.Size,
		ContentType:  contentType,
		ETag:         up.ETag,
		LastModified: modified,
	}, nil
}

// Get opens a streaming handle to the object at key.
// The caller MUST call Object.Close() after reading.
func (d *Driver) Get(ctx context.Context, key string) (filestore.Object, error) {
	key, err := filestore.CleanKey(key)
	if err != nil {
		return nil, err
	}

	obj, err := d.client.GetObject(ctx, d.bucket, key, miniogo.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to get object")
	}

	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, mapError(err, "failed to stat object after get")
	}

	return &object{ReadCloser: obj, info: toInfo(stat)}, nil
}

// Stat returns metadata for the object at key.
func (d *Driver) Stat(ctx context.Context, key string) (*filestore.ObjectInfo, error) {
	key, err := filestore.CleanKey(key)
	if err != nil {
		return nil, err
	}

	stat, err := d.client.StatObject(ctx, d.bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to stat object")
	}
	return toInfo(stat), nil
}

// List returns the objects under opts.Prefix, ordered by key.
func (d *Driver) List(ctx context.Context, opts filestore.ListOptions) ([]filestore.ObjectInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	listOpts := miniogo.ListObjectsOptions{
		Prefix:    opts.Prefix,
		Recursive: true,
	}

	var results []filestore.ObjectInfo
	for obj := range d.client.ListObjects(ctx, d.bucket, listOpts) {
		if obj.Err != nil {
			return nil, mapError(obj.Err, "failed to list objects")
		}

		results = append(results, *toInfo(obj))
		if opts.Limit > 0 && len(results) >= opts.Limit {
			break
		}
	}
	return results, nil
}

// URL returns a presigned download URL valid for ttl.
func (d *Driver) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	key, err := filestore.CleanKey(key)
	if err != nil {
		return "", err
	}

	u, err := d.client.PresignedGetObject(ctx, d.bucket, key, ttl, nil)
	if err != nil {
		return "", mapError(err, "failed to generate presigned URL")
	}
	return u.String(), nil
}

func toInfo(o miniogo.ObjectInfo) *filestore.ObjectInfo {
	return &filestore.ObjectInfo{
		Key:          o.Key,
		Size:         o.Size,
		ContentType:  o.ContentType,
		ETag:         o.ETag,
		LastModified: o.LastModified,
	}
}

// object wraps a MinIO GetObject response and exposes filestore.Object.
type object struct {
	io.ReadCloser
	info *filestore.ObjectInfo
}

func (o *object) Info() *filestore.ObjectInfo {
	return o.info
}
