package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dshills/hintprefs/internal/setdiff"
)

// ObjectConfig configures an S3-compatible object store.
type ObjectConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// Object stores each classifier's diff as a JSON object named
// <prefix>/<classifier>.json. Option values share one object named
// <prefix>/options, which List skips because it has no .json suffix.
type Object struct {
	client *minio.Client
	bucket string
	region string
	prefix string

	bucketReady initGate
}

// NewObject creates an object-store backend.
func NewObject(cfg ObjectConfig) (*Object, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &Object{
		client: client,
		bucket: bucket,
		region: region,
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
	}, nil
}

func (o *Object) ensureBucket(ctx context.Context) error {
	return o.bucketReady.do(ctx, func(ctx context.Context) error {
		exists, err := o.client.BucketExists(ctx, o.bucket)
		if err != nil || exists {
			return err
		}
		return o.client.MakeBucket(ctx, o.bucket, minio.MakeBucketOptions{Region: o.region})
	})
}

// Load implements Backend.
func (o *Object) Load(ctx context.Context, classifier string) (setdiff.Diff[string], error) {
	if err := o.ensureBucket(ctx); err != nil {
		return setdiff.Diff[string]{}, fmt.Errorf("ensure bucket: %w", err)
	}
	data, err := o.get(ctx, o.key(classifier))
	if err != nil {
		return setdiff.Diff[string]{}, err
	}
	return decodeJSON(data)
}

// Save implements Backend.
func (o *Object) Save(ctx context.Context, classifier string, d setdiff.Diff[string]) error {
	if err := o.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	key := o.key(classifier)
	if d.IsEmpty() {
		err := o.client.RemoveObject(ctx, o.bucket, key, minio.RemoveObjectOptions{})
		if err != nil && !isNoSuchKey(err) {
			return err
		}
		return nil
	}

	payload, err := encodeJSON(d)
	if err != nil {
		return err
	}
	return o.put(ctx, key, payload)
}

// List implements Backend.
func (o *Object) List(ctx context.Context) ([]string, error) {
	if err := o.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	prefix := o.dir()
	var out []string
	for obj := range o.client.ListObjects(ctx, o.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		name, ok := strings.CutSuffix(strings.TrimPrefix(obj.Key, prefix), ".json")
		if !ok || name == "" {
			continue
		}
		if c, err := url.PathUnescape(name); err == nil {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out, nil
}

// LoadOptions implements Backend.
func (o *Object) LoadOptions(ctx context.Context) (map[string]bool, error) {
	if err := o.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	data, err := o.get(ctx, o.optionsKey())
	if errors.Is(err, ErrNotFound) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeOptions(data)
}

// SaveOption implements Backend. The options object is rewritten whole, so
// concurrent writers from different processes can lose each other's updates.
func (o *Object) SaveOption(ctx context.Context, id string, value bool) error {
	values, err := o.LoadOptions(ctx)
	if err != nil {
		return err
	}
	if v, ok := values[id]; ok && v == value {
		return nil
	}
	values[id] = value
	payload, err := encodeOptions(values)
	if err != nil {
		return err
	}
	return o.put(ctx, o.optionsKey(), payload)
}

func (o *Object) get(ctx context.Context, key string) ([]byte, error) {
	obj, err := o.client.GetObject(ctx, o.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (o *Object) put(ctx context.Context, key string, payload []byte) error {
	_, err := o.client.PutObject(ctx, o.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

func (o *Object) optionsKey() string {
	return o.dir() + "options"
}

func (o *Object) dir() string {
	if o.prefix == "" {
		return ""
	}
	return o.prefix + "/"
}

func (o *Object) key(classifier string) string {
	return o.dir() + url.PathEscape(classifier) + ".json"
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}
