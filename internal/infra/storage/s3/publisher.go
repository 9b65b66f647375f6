package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Eliezelg/villasaas-sub004/internal/app/policies"
)

const calendarContentType = "text/calendar; charset=utf-8"

// Config locates the bucket holding published calendar feeds.
type Config struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
}

// FeedPublisher stores rendered feeds in an S3-compatible bucket readable by
// channel managers, so they can poll a static URL.
type FeedPublisher struct {
	bucket         string
	publicBaseURL  string
	client         *minio.Client
	logger         *slog.Logger
	bucketInitOnce sync.Once
	bucketInitErr  error
}

func NewFeedPublisher(cfg Config, logger *slog.Logger) (*FeedPublisher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	client, err := minio.New(hostOf(endpoint), &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	base := strings.TrimSpace(cfg.PublicEndpoint)
	if base == "" {
		base = endpoint
	}
	if !strings.Contains(base, "://") {
		scheme := "http://"
		if cfg.UseSSL {
			scheme = "https://"
		}
		base = scheme + base
	}
	return &FeedPublisher{
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(base, "/"),
		client:        client,
		logger:        logger,
	}, nil
}

// Publish overwrites the object at key with the feed and returns its URL.
func (p *FeedPublisher) Publish(ctx context.Context, key string, data []byte) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New("s3: object key is required")
	}
	if err := p.ensureBucket(ctx); err != nil {
		return "", err
	}
	_, err := p.client.PutObject(ctx, p.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  calendarContentType,
		CacheControl: "max-age=300",
	})
	if err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}
	publicURL := p.ObjectURL(key)
	if p.logger != nil {
		p.logger.InfoContext(ctx, "feed published", "bucket", p.bucket, "key", key, "bytes", len(data))
	}
	return publicURL, nil
}

// Ping checks that the bucket is reachable; /readyz uses it.
func (p *FeedPublisher) Ping(ctx context.Context) error {
	_, err := p.client.BucketExists(ctx, p.bucket)
	return err
}

func (p *FeedPublisher) ObjectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", p.publicBaseURL, p.bucket, strings.TrimLeft(key, "/"))
}

func (p *FeedPublisher) ensureBucket(ctx context.Context) error {
	p.bucketInitOnce.Do(func() {
		exists, err := p.client.BucketExists(ctx, p.bucket)
		if err != nil {
			p.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{}); err != nil {
			p.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
			return
		}
		if err := p.allowPublicRead(ctx); err != nil {
			p.bucketInitErr = err
		}
	})
	return p.bucketInitErr
}

// allowPublicRead exposes objects only; listing the bucket would leak feed tokens.
func (p *FeedPublisher) allowPublicRead(ctx context.Context) error {
	policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, p.bucket)
	if err := p.client.SetBucketPolicy(ctx, p.bucket, policy); err != nil {
		return fmt.Errorf("s3: set bucket policy: %w", err)
	}
	return nil
}

func hostOf(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var _ policies.FeedPublisher = (*FeedPublisher)(nil)
