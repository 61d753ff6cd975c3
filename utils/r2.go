package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Options carries the Cloudflare R2 account and bucket settings.
type R2Options struct {
	AccountID       string
	Bucket          string
	PublicURL       string // e.g. https://<bucket>.<account_id>.r2.cloudflarestorage.com
	AccessKeyID     string
	SecretAccessKey string
}

// R2Storage stores receipt photos in an R2 bucket through the S3 API.
type R2Storage struct {
	client     *s3.Client
	bucket     string
	publicBase string
}

func NewR2Storage(ctx context.Context, opts R2Options) (*R2Storage, error) {
	if opts.Bucket == "" || opts.AccountID == "" || opts.PublicURL == "" {
		return nil, errors.New("missing required R2 settings")
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"), // R2 ignores regions but the signer needs one
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", opts.AccountID)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &R2Storage{
		client:     client,
		bucket:     opts.Bucket,
		publicBase: strings.TrimRight(opts.PublicURL, "/"),
	}, nil
}

// Put uploads data under key and returns its public URL.
func (s *R2Storage) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}
	return PublicObjectURL(s.publicBase, key), nil
}

// Delete removes the object behind a URL returned by Put.
func (s *R2Storage) Delete(ctx context.Context, fileURL string) error {
	key, err := ObjectKey(s.publicBase, fileURL)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete R2 object: %w", err)
	}
	return nil
}

// PhotoKey is the object key of a receipt photo: receipts/<id>/<slot>/<name>.
func PhotoKey(receiptID, slotKey, name string) string {
	return path.Join("receipts", receiptID, slotKey, path.Base(name))
}

func PublicObjectURL(base, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/")
}

// ObjectKey reverses PublicObjectURL.
func ObjectKey(base, fileURL string) (string, error) {
	u, err := url.Parse(fileURL)
	if err != nil {
		return "", fmt.Errorf("invalid file URL: %w", err)
	}
	b, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid public base URL: %w", err)
	}
	if u.Host != b.Host || !strings.HasPrefix(u.Path, b.Path+"/") {
		return "", fmt.Errorf("file URL %s is outside %s", fileURL, base)
	}
	return strings.TrimPrefix(u.Path, b.Path+"/"), nil
}
