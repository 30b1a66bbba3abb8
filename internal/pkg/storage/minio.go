package storage

import (
	"bytes"
	"context"
	"net/url"
	"sort"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOOptions struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
	Region       string
	UseSSL       bool
	// CreateBucket makes the bucket on start when it does not exist (local setups).
	CreateBucket bool
}

// MinIO stores objects in one MinIO bucket.
type MinIO struct {
	bucket string
	client *minio.Client
}

func NewMinIO(ctx context.Context, bucket string, opts MinIOOptions) (*MinIO, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, opts.SessionToken),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, err
	}

	if opts.CreateBucket {
		exists, err := client.BucketExists(ctx, bucket)
		if err != nil {
			return nil, err
		}
		if !exists {
			if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
				return nil, err
			}
		}
	}

	return &MinIO{bucket: bucket, client: client}, nil
}

func (m *MinIO) Put(ctx context.Context, key string, body []byte, opts PutOptions) (Object, error) {
	info, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:        opts.ContentType,
		ContentDisposition: contentDisposition(opts.Filename),
		UserMetadata:       opts.Metadata,
	})
	if err != nil {
		return Object{}, err
	}

	return Object{
		Key:         key,
		Size:        info.Size,
		ETag:        info.ETag,
		ContentType: opts.ContentType,
		Metadata:    opts.Metadata,
	}, nil
}

func (m *MinIO) Get(ctx context.Context, key string, limit int64) ([]byte, Object, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, Object{}, minioError(err)
	}
	defer obj.Close()

	stat, err := obj.Stat()
	if err != nil {
		return nil, Object{}, minioError(err)
	}

	body, err := readLimited(obj, limit)
	if err != nil {
		return nil, Object{}, err
	}

	return body, Object{
		Key:         key,
		Size:        stat.Size,
		ETag:        stat.ETag,
		ContentType: stat.ContentType,
		Metadata:    stat.UserMetadata,
		UpdatedAt:   stat.LastModified,
	}, nil
}

func (m *MinIO) Delete(ctx context.Context, key string) error {
	return minioError(m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}))
}

func (m *MinIO) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		objects = append(objects, Object{
			Key:       obj.Key,
			Size:      obj.Size,
			ETag:      obj.ETag,
			UpdatedAt: obj.LastModified,
		})
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (m *MinIO) SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucket, key, expiry, url.Values{})
	if err != nil {
		return "", err
	}

	return u.String(), nil
}

func (m *MinIO) Close() error { return nil }

func minioError(err error) error {
	if err == nil {
		return nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}
	return err
}
