package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client the store needs (allows mocking in
// tests).
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store persists artifacts in an S3 bucket under per-kind prefixes.
type S3Store struct {
	api    S3API
	bucket string
}

func NewS3Store(api S3API, bucket string) (*S3Store, error) {
	if api == nil {
		return nil, errors.New("artifacts: s3 client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("artifacts: s3 bucket is required")
	}
	return &S3Store{api: api, bucket: bucket}, nil
}

func (s *S3Store) key(caseID string, kind Kind) string {
	return kind.prefix() + "/" + caseID + kind.ext()
}

func (s *S3Store) Put(ctx context.Context, caseID string, kind Kind, body []byte) (string, error) {
	if caseID == "" || !kind.Valid() {
		return "", fmt.Errorf("artifacts: invalid key %q/%q", caseID, kind)
	}
	key := s.key(caseID, kind)
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(kind.ContentType()),
	})
	if err != nil {
		return "", fmt.Errorf("artifacts: put s3://%s/%s: %w", s.bucket, key, err)
	}
	return key, nil
}

func (s *S3Store) Get(ctx context.Context, caseID string, kind Kind) ([]byte, error) {
	if caseID == "" || !kind.Valid() {
		return nil, fmt.Errorf("artifacts: invalid key %q/%q", caseID, kind)
	}
	key := s.key(caseID, kind)
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("artifacts: get s3://%s/%s: %w", s.bucket, key, err)
	}
	defer func() { _ = out.Body.Close() }()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("artifacts: read s3://%s/%s: %w", s.bucket, key, err)
	}
	return body, nil
}
