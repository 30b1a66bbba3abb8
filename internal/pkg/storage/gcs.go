package storage

import (
	"context"
	"errors"
	"os"
	"time"

	gcs "cloud.google.com/go/storage"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GCSOptions struct {
	// CredentialsFile is a service account JSON key. Empty uses application
	// default credentials and disables SignedURL unless the key is set.
	CredentialsFile string
}

// GCS stores objects in one Google Cloud Storage bucket.
type GCS struct {
	bucket *gcs.BucketHandle
	client *gcs.Client
	name   string

	accessID   string
	privateKey []byte
}

func NewGCS(ctx context.Context, bucket string, opts GCSOptions) (*GCS, error) {
	var clientOpts []option.ClientOption
	g := &GCS{name: bucket}

	if opts.CredentialsFile != "" {
		raw, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, err
		}

		jwtCfg, err := google.JWTConfigFromJSON(raw, gcs.ScopeReadWrite)
		if err != nil {
			return nil, err
		}
		g.accessID = jwtCfg.Email
		g.privateKey = jwtCfg.PrivateKey

		clientOpts = append(clientOpts, option.WithCredentialsJSON(raw))
	}

	client, err := gcs.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, err
	}
	g.client = client
	g.bucket = client.Bucket(bucket)

	return g, nil
}

func (g *GCS) Put(ctx context.Context, key string, body []byte, opts PutOptions) (Object, error) {
	w := g.bucket.Object(key).NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.ContentDisposition = contentDisposition(opts.Filename)
	w.Metadata = opts.Metadata

	if _, err := w.Write(body); err != nil {
		return Object{}, errors.Join(err, w.Close())
	}
	if err := w.Close(); err != nil {
		return Object{}, err
	}

	return gcsObject(w.Attrs()), nil
}

func (g *GCS) Get(ctx context.Context, key string, limit int64) ([]byte, Object, error) {
	r, err := g.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, Object{}, gcsError(err)
	}
	defer r.Close()

	body, err := readLimited(r, limit)
	if err != nil {
		return nil, Object{}, err
	}

	return body, Object{
		Key:         key,
		Size:        r.Attrs.Size,
		ContentType: r.Attrs.ContentType,
		UpdatedAt:   r.Attrs.LastModified,
	}, nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	return gcsError(g.bucket.Object(key).Delete(ctx))
}

func (g *GCS) List(ctx context.Context, prefix string) ([]Object, error) {
	it := g.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})

	var objects []Object
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return objects, nil
		}
		if err != nil {
			return nil, err
		}
		objects = append(objects, gcsObject(attrs))
	}
}

func (g *GCS) SignedURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	if g.accessID == "" || len(g.privateKey) == 0 {
		return "", ErrMissingSigner
	}

	return g.bucket.SignedURL(key, &gcs.SignedURLOptions{
		Method:         "GET",
		Expires:        time.Now().Add(expiry),
		GoogleAccessID: g.accessID,
		PrivateKey:     g.privateKey,
		Scheme:         gcs.SigningSchemeV4,
	})
}

func (g *GCS) Close() error {
	return g.client.Close()
}

func gcsObject(attrs *gcs.ObjectAttrs) Object {
	if attrs == nil {
		return Object{}
	}

	return Object{
		Key:         attrs.Name,
		Size:        attrs.Size,
		ETag:        attrs.Etag,
		ContentType: attrs.ContentType,
		Metadata:    attrs.Metadata,
		UpdatedAt:   attrs.Updated,
	}
}

func gcsError(err error) error {
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return ErrNotFound
	}
	return err
}
