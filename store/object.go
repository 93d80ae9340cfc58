package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config locates the bucket used by ObjectProvider.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSSL"`
	Prefix    string `yaml:"prefix"`
}

// ObjectProvider stores each key as a JSON object in an S3 compatible bucket.
type ObjectProvider struct {
	client  *minio.Client
	bucket  string
	prefix  string
	timeout time.Duration
}

// NewObjectProvider connects and makes sure the bucket exists.
func NewObjectProvider(ctx context.Context, cfg S3Config) (*ObjectProvider, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &ObjectProvider{
		client:  cli,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		timeout: 10 * time.Second,
	}, nil
}

func (o *ObjectProvider) object(key string) string {
	return path.Join(o.prefix, key+".json")
}

func (o *ObjectProvider) Get(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	obj, err := o.client.GetObject(ctx, o.bucket, o.object(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (o *ObjectProvider) Set(key string, val []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	_, err := o.client.PutObject(ctx, o.bucket, o.object(key), bytes.NewReader(val), int64(len(val)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

func (o *ObjectProvider) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	return o.client.RemoveObject(ctx, o.bucket, o.object(key), minio.RemoveObjectOptions{})
}

func (o *ObjectProvider) Close() error { return nil }
