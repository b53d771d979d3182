// Package archive uploads console transcripts to S3-compatible object
// storage. Lab deployments point it at MinIO or Ceph RGW; the
// transcript of every run is kept where a reimaged jump host cannot
// lose it.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/datacenter/wiper/internal/config"
	"github.com/datacenter/wiper/internal/provision"
)

const keyPrefix = "transcripts/"

// Archive stores transcripts in one bucket of an S3-compatible
// endpoint.
type Archive struct {
	s3     *s3.Client
	bucket string
}

// New builds an archive client from the [archive] section of the INI
// file. It does not touch the network; EnsureBucket or the first
// upload will.
func New(cfg *config.ArchiveConfig) (*Archive, error) {
	if cfg == nil {
		return nil, fmt.Errorf("archive config cannot be nil")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("loading object storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		// Lab object stores (MinIO, Ceph RGW) resolve buckets by path,
		// not by virtual host.
		o.UsePathStyle = true
	})

	return &Archive{s3: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the transcript bucket if it does not exist yet.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	_, err := a.s3.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil && !bucketAlreadyOwned(err) {
		return fmt.Errorf("creating bucket %s: %w", a.bucket, err)
	}
	return nil
}

// Ping checks that the bucket exists and the credentials can reach it.
func (a *Archive) Ping(ctx context.Context) (bool, error) {
	_, err := a.s3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking bucket %s: %w", a.bucket, err)
	}
	return true, nil
}

// Upload stores the transcript of one run and returns its object key.
// Runs that never produced console output are skipped and return an
// empty key.
func (a *Archive) Upload(ctx context.Context, outcome *provision.Outcome) (string, error) {
	if outcome.Transcript == "" {
		return "", nil
	}

	key := transcriptKey(outcome)
	data := []byte(outcome.Transcript)
	_, err := a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading transcript %s: %w", key, err)
	}
	return key, nil
}

// Fetch retrieves a previously uploaded transcript by its key.
func (a *Archive) Fetch(ctx context.Context, key string) ([]byte, error) {
	result, err := a.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching transcript %s: %w", key, err)
	}
	defer result.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(result.Body); err != nil {
		return nil, fmt.Errorf("reading transcript %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

// List returns the transcript keys stored for one target, or all
// targets when target is empty.
func (a *Archive) List(ctx context.Context, target string) ([]string, error) {
	prefix := keyPrefix
	if target != "" {
		prefix += sanitizeTarget(target) + "/"
	}

	result, err := a.s3.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("listing transcripts: %w", err)
	}

	var keys []string
	for _, obj := range result.Contents {
		if obj.Key != nil {
			keys = append(keys, *obj.Key)
		}
	}
	return keys, nil
}

// transcriptKey derives the object key for a run. Keys group by target
// so a prefix listing answers "all transcripts for apic2".
func transcriptKey(outcome *provision.Outcome) string {
	stamp := outcome.StartedAt.UTC().Format("20060102T150405Z")
	return keyPrefix + sanitizeTarget(outcome.Target) + "/" + stamp + ".log"
}

func sanitizeTarget(target string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '.' || r == '_':
			return r
		default:
			return '_'
		}
	}, target)
}

// bucketAlreadyOwned reports whether a CreateBucket failure just means
// the bucket is already there. Compatible stores do not always return
// the typed SDK errors, so the API error code is checked as well.
func bucketAlreadyOwned(err error) bool {
	var owned *types.BucketAlreadyOwnedByYou
	if errors.As(err, &owned) {
		return true
	}
	var exists *types.BucketAlreadyExists
	if errors.As(err, &exists) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists"
	}
	return false
}

func isNotFound(err error) bool {
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noBucket) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchBucket" || code == "404"
	}
	return false
}
