package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/gabriel-vasile/mimetype"
)

// ObjectStore is the subset of a bucket the publisher needs
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
}

// S3Store writes objects to an S3-compatible bucket
type S3Store struct {
	client       *s3.Client
	bucket       string
	cacheControl string
}

// NewS3Store creates a store from publish settings using the default AWS
// credential chain
func NewS3Store(ctx context.Context, p PublishSettings) (*S3Store, error) {
	var loadOpts []func(*config.LoadOptions) error
	if p.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(p.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = p.UsePathStyle
		if p.Endpoint != "" {
			o.BaseEndpoint = aws.String(p.Endpoint)
		}
	})

	return &S3Store{client: client, bucket: p.Bucket, cacheControl: p.CacheControl}, nil
}

// Exists reports whether key is already in the bucket
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return false, nil
	}
	return false, err
}

// Put uploads body under key
func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if s.cacheControl != "" {
		in.CacheControl = aws.String(s.cacheControl)
	}
	_, err := s.client.PutObject(ctx, in)
	return err
}

// PublishResult counts what a publish run did
type PublishResult struct {
	Uploaded int
	Skipped  int
	Failed   int
}

// AssetPublisher uploads the local assets directory to an ObjectStore
type AssetPublisher struct {
	store  ObjectStore
	dir    string
	prefix string
	force  bool
}

// NewAssetPublisher creates a publisher for dir. Keys are prefix + file name.
func NewAssetPublisher(store ObjectStore, dir, prefix string, force bool) *AssetPublisher {
	return &AssetPublisher{store: store, dir: dir, prefix: prefix, force: force}
}

// Publish uploads every regular file in the assets directory. A failed
// upload is logged and counted; the remaining files are still attempted.
func (p *AssetPublisher) Publish(ctx context.Context) (*PublishResult, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p.dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	result := &PublishResult{}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		key := path.Join(p.prefix, entry.Name())
		uploaded, err := p.publishFile(ctx, filepath.Join(p.dir, entry.Name()), key)
		switch {
		case err != nil:
			result.Failed++
			log.Printf("✗ Failed %s: %v", key, err)
		case uploaded:
			result.Uploaded++
			log.Printf("✓ Uploaded: %s", key)
		default:
			result.Skipped++
			debugLog("skipping existing %s", key)
		}
	}
	return result, nil
}

func (p *AssetPublisher) publishFile(ctx context.Context, filename, key string) (bool, error) {
	if !p.force {
		exists, err := p.store.Exists(ctx, key)
		if err != nil {
			return false, fmt.Errorf("checking %s: %w", key, err)
		}
		if exists {
			return false, nil
		}
	}

	mtype, err := mimetype.DetectFile(filename)
	if err != nil {
		return false, fmt.Errorf("detecting content type: %w", err)
	}

	f, err := os.Open(filename)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if err := p.store.Put(ctx, key, f, mtype.String()); err != nil {
		return false, fmt.Errorf("uploading: %w", err)
	}
	return true, nil
}
