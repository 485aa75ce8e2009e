// Package minio stores oversized source text as objects, keeping only a
// blob key in the primary database.
package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/citekeep/citekeep/internal/config"
	"github.com/citekeep/citekeep/internal/infrastructure/monitoring/logging"
	appErrors "github.com/citekeep/citekeep/pkg/errors"
)

const contentType = "text/plain; charset=utf-8"

// objectAPI is the slice of the minio client the blob store uses.
type objectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
}

// BlobStore implements source.BlobStore on top of an object bucket.
type BlobStore struct {
	api    objectAPI
	bucket string
	log    logging.Logger
}

// NewBlobStore connects to the object store and ensures the bucket exists.
func NewBlobStore(ctx context.Context, cfg config.MinIOConfig, log logging.Logger) (*BlobStore, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeStorageError, "failed to create object store client")
	}

	s := &BlobStore{api: client, bucket: cfg.Bucket, log: log.Named("blob_store")}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.ensureBucket(probeCtx); err != nil {
		return nil, err
	}

	log.Info("blob store ready",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", cfg.Bucket),
	)
	return s, nil
}

func (s *BlobStore) ensureBucket(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeStorageError, "failed to probe bucket")
	}
	if exists {
		return nil
	}
	if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeStorageError, "failed to create bucket")
	}
	return nil
}

// Put writes text under key, overwriting any previous version.
func (s *BlobStore) Put(ctx context.Context, key, text string) error {
	reader := bytes.NewReader([]byte(text))
	_, err := s.api.PutObject(ctx, s.bucket, key, reader, int64(reader.Len()),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrCodeStorageError, "failed to store blob "+key)
	}
	return nil
}

// Get reads the full text stored under key.
func (s *BlobStore) Get(ctx context.Context, key string) (string, error) {
	obj, err := s.api.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrCodeBlobFetchFailed, "failed to open blob "+key)
	}
	defer obj.Close()

	var sb strings.Builder
	if _, err := io.Copy(&sb, obj); err != nil {
		if isNoSuchKey(err) {
			return "", appErrors.New(appErrors.ErrCodeBlobFetchFailed, "blob "+key+" does not exist")
		}
		return "", appErrors.Wrap(err, appErrors.ErrCodeBlobFetchFailed, "failed to read blob "+key)
	}
	return sb.String(), nil
}

func isNoSuchKey(err error) bool {
	var resp minio.ErrorResponse
	if errors.As(err, &resp) {
		return resp.Code == "NoSuchKey"
	}
	return false
}
