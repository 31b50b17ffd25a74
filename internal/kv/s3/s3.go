// Package s3 keeps the whole keyspace in a single S3 object.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/fekuna/omnipos-inventory-service/internal/kv/snapshot"
)

// ObjectAPI is the part of the S3 client the store uses.
type ObjectAPI interface {
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
}

type Config struct {
	Region string
	Bucket string
	Key    string
}

type blob struct {
	client ObjectAPI
	bucket string
	key    string
}

// Open loads the default AWS credential chain for the configured region.
func Open(ctx context.Context, cfg Config) (*snapshot.Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return New(awss3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Key), nil
}

func New(client ObjectAPI, bucket, key string) *snapshot.Store {
	if key == "" {
		key = "inventory/snapshot.json"
	}
	return snapshot.New(&blob{client: client, bucket: bucket, key: key})
}

func (b *blob) Load(ctx context.Context) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, nil
		}
		return nil, fmt.Errorf("s3 get %s/%s: %w", b.bucket, b.key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (b *blob) Save(ctx context.Context, data []byte) error {
	_, err := b.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s/%s: %w", b.bucket, b.key, err)
	}
	return nil
}

func (b *blob) Close() error { return nil }
