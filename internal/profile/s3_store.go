package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store reads <prefix><name>.json objects from a bucket.
type S3Store struct {
	client S3API
	bucket string
	prefix string
}

func NewS3Store(client S3API, bucket, prefix string) *S3Store {
	if client == nil {
		panic("profile: s3 client cannot be nil")
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Store) objectKey(name string) string {
	return s.prefix + name + ".json"
}

func (s *S3Store) Resolve(ctx context.Context, business string) (Resolution, error) {
	if !ValidName(business) {
		return Resolution{}, nil
	}
	for _, name := range candidates(business) {
		key := s.objectKey(name)
		out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if isMissingObject(err) {
			continue
		}
		if err != nil {
			return Resolution{}, fmt.Errorf("profile: s3 get %s: %w", key, err)
		}
		data, err := io.ReadAll(out.Body)
		_ = out.Body.Close()
		if err != nil {
			return Resolution{}, fmt.Errorf("profile: s3 read %s: %w", key, err)
		}
		var p BusinessProfile
		if err := json.Unmarshal(data, &p); err != nil {
			return Resolution{}, fmt.Errorf("profile: decode %s: %w", key, err)
		}
		return found(name, normalize(name, &p)), nil
	}
	return Resolution{}, nil
}

func (s *S3Store) Put(ctx context.Context, business string, p *BusinessProfile) error {
	if !ValidName(business) {
		return fmt.Errorf("%w: %q", ErrInvalidName, business)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("profile: marshal: %w", err)
	}
	key := s.objectKey(business)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("profile: s3 put %s: %w", key, err)
	}
	return nil
}

func isMissingObject(err error) bool {
	if err == nil {
		return false
	}
	var noKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	return errors.As(err, &noKey) || errors.As(err, &notFound)
}
