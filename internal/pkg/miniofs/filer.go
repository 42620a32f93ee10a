package miniofs

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Options is minio connection config
type Options struct {
	URL    string
	User   string
	Key    string
	Bucket string
	SSL    bool
}

// Filer stores and loads blobs in one minio bucket
type Filer struct {
	client *minio.Client
	bucket string
}

// NewFiler connects to minio and makes sure the bucket exists
func NewFiler(ctx context.Context, opts Options) (*Filer, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("no url")
	}
	if opts.Bucket == "" {
		return nil, fmt.Errorf("no bucket")
	}
	client, err := minio.New(opts.URL, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.User, opts.Key, ""),
		Secure: opts.SSL,
	})
	if err != nil {
		return nil, fmt.Errorf("can't init minio client: %w", err)
	}
	res := &Filer{client: client, bucket: opts.Bucket}
	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("can't check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("can't make bucket: %w", err)
		}
		goapp.Log.Info().Str("bucket", opts.Bucket).Msg("created bucket")
	}
	return res, nil
}

// SaveFile streams r into the bucket without buffering it fully in memory
func (f *Filer) SaveFile(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	goapp.Log.Info().Str("name", name).Int64("size", size).Msg("save file")
	_, err := f.client.PutObject(ctx, f.bucket, name, r, size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("can't save '%s': %w", name, err)
	}
	return nil
}

// LoadFile opens a blob as a read stream. The result also provides
// Stat() (fs.FileInfo, error) for http.ServeContent.
func (f *Filer) LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error) {
	obj, err := f.client.GetObject(ctx, f.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("can't load '%s': %w", name, err)
	}
	// GetObject is lazy, force the error out before returning
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, err
	}
	return &file{Object: obj}, nil
}

// Delete removes a blob
func (f *Filer) Delete(ctx context.Context, name string) error {
	goapp.Log.Info().Str("name", name).Msg("delete file")
	if err := f.client.RemoveObject(ctx, f.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("can't delete '%s': %w", name, err)
	}
	return nil
}

type file struct {
	*minio.Object
}

func (f *file) Stat() (fs.FileInfo, error) {
	info, err := f.Object.Stat()
	if err != nil {
		return nil, err
	}
	return &fileInfo{info: info}, nil
}

type fileInfo struct {
	info minio.ObjectInfo
}

func (fi *fileInfo) Name() string       { return filepath.Base(fi.info.Key) }
func (fi *fileInfo) Size() int64        { return fi.info.Size }
func (fi *fileInfo) Mode() fs.FileMode  { return 0 }
func (fi *fileInfo) ModTime() time.Time { return fi.info.LastModified }
func (fi *fileInfo) IsDir() bool        { return false }
func (fi *fileInfo) Sys() any           { return nil }
