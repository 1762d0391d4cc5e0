package mirror

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/custodia-labs/ksef-desk/internal/core/domain"
	"github.com/custodia-labs/ksef-desk/internal/core/ports/driven"
)

// Ensure S3 implements the interface.
var _ driven.ArtifactMirror = (*S3)(nil)

// S3 stores artifacts in an S3 bucket.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3 creates an S3 mirror using the default AWS credential chain.
func NewS3(ctx context.Context, bucket, prefix string) (*S3, error) {
	if bucket == "" {
		return nil, domain.NewValidationError("mirror.s3.bucket", "is required")
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newS3(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func newS3(client *s3.Client, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: prefix}
}

// Name returns the target name.
func (s *S3) Name() string {
	return TargetS3
}

// Store uploads one artifact.
func (s *S3) Store(ctx context.Context, identity domain.Identity, name string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(s.prefix, identity, name)),
		Body:        bytes.NewReader(data),
		ACL:         types.ObjectCannedACLPrivate,
		ContentType: aws.String(contentType(name)),
		Metadata: map[string]string{
			"nip":         identity.NIP,
			"environment": identity.Environment.String(),
		},
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, objectKey(s.prefix, identity, name), err)
	}
	return nil
}
