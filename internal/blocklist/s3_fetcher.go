package blocklist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by S3Fetcher.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher reads a blocklist object addressed as s3://bucket/key.
type S3Fetcher struct {
	client       S3API
	maxBodyBytes int64
}

// NewS3Fetcher wraps an existing client.
func NewS3Fetcher(client S3API, maxBodyBytes int64) *S3Fetcher {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 16 << 20
	}
	return &S3Fetcher{client: client, maxBodyBytes: maxBodyBytes}
}

// NewS3FetcherFromConfig loads the default AWS credential chain, optionally
// pinned to a shared-config profile.
func NewS3FetcherFromConfig(ctx context.Context, region, profile string, maxBodyBytes int64) (*S3Fetcher, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewS3Fetcher(s3.NewFromConfig(cfg), maxBodyBytes), nil
}

// Fetch implements Fetcher.
func (f *S3Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	bucket, key, err := parseS3URL(rawURL)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: rawURL, Err: err}
	}

	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if code := s3StatusCode(err); code != 0 {
			return nil, &FetchError{Kind: KindHTTPStatus, URL: rawURL, Code: code, Err: err}
		}
		return nil, &FetchError{Kind: KindNetwork, URL: rawURL, Err: err}
	}
	defer out.Body.Close()

	body, err := io.ReadAll(io.LimitReader(out.Body, f.maxBodyBytes+1))
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: rawURL, Err: fmt.Errorf("read object: %w", err)}
	}
	if int64(len(body)) > f.maxBodyBytes {
		return nil, &FetchError{Kind: KindNetwork, URL: rawURL, Err: fmt.Errorf("object exceeds %d bytes", f.maxBodyBytes)}
	}
	return body, nil
}

func parseS3URL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("s3 url must look like s3://bucket/key, got %q", rawURL)
	}
	return u.Host, key, nil
}

// s3StatusCode maps service-side errors onto HTTP status codes so callers see
// the same taxonomy as HTTPFetcher. Zero means a transport failure.
func s3StatusCode(err error) int {
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return http.StatusNotFound
	}
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noBucket) {
		return http.StatusNotFound
	}
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return respErr.HTTPStatusCode()
	}
	return 0
}
