package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"ContributionsETL/internal/domain"
	"ContributionsETL/internal/ports"
)

// ObjectAPI is the subset of the S3 client the archive uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Archive stores pages as objects in a bucket.
type S3Archive struct {
	api    ObjectAPI
	bucket string
	prefix string
}

var _ ports.PageArchive = (*S3Archive)(nil)

// NewS3Archive creates an archive using the default AWS credential chain.
func NewS3Archive(ctx context.Context, bucket, prefix, region string) (*S3Archive, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	return NewS3ArchiveWithAPI(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// NewS3ArchiveWithAPI wires an existing client.
func NewS3ArchiveWithAPI(api ObjectAPI, bucket, prefix string) *S3Archive {
	return &S3Archive{api: api, bucket: bucket, prefix: prefix}
}

// Store puts the page object; S3 overwrites an existing key.
func (a *S3Archive) Store(ctx context.Context, partition domain.Partition, page int, raw []byte) error {
	key := Key(a.prefix, partition, page)
	_, err := a.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", a.bucket, key, err)
	}
	return nil
}

// Load fetches the page object.
func (a *S3Archive) Load(ctx context.Context, partition domain.Partition, page int) ([]byte, error) {
	key := Key(a.prefix, partition, page)
	resp, err := a.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("s3://%s/%s: %w", a.bucket, key, domain.ErrPageNotArchived)
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", a.bucket, key, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", a.bucket, key, err)
	}
	return raw, nil
}
