package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/nikhilmehra04/stylehub-backend/pkg/config"
	"github.com/nikhilmehra04/stylehub-backend/pkg/logger"
)

// Client wraps the S3 API and presigner for the configured bucket.
type Client struct {
	api            *s3.Client
	presigner      *s3.PresignClient
	bucket         string
	region         string
	uploadExpiry   s3PresignExpiry
	downloadExpiry s3PresignExpiry
}

type s3PresignExpiry = func(*s3.PresignOptions)

// UploadTicket is a presigned upload destination plus the canonical URL
// the object will be readable from after the client PUTs it.
type UploadTicket struct {
	UploadURL string `json:"upload_url"`
	FileURL   string `json:"file_url"`
	Key       string `json:"s3_key"`
}

// New builds the storage client from configuration.
func New(ctx context.Context, cfg config.S3Config, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BucketName) == "" {
		return nil, fmt.Errorf("s3 bucket name is required")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		return nil, fmt.Errorf("s3 region is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg)

	if logg != nil {
		logg.Info(ctx, "s3 client initialized")
	}

	return &Client{
		api:            api,
		presigner:      s3.NewPresignClient(api),
		bucket:         cfg.BucketName,
		region:         cfg.Region,
		uploadExpiry:   s3.WithPresignExpires(cfg.UploadURLExpiry),
		downloadExpiry: s3.WithPresignExpires(cfg.DownloadURLExpiry),
	}, nil
}

// PresignUpload issues a PUT URL for a new object under the given prefix.
// The key gets a uuid so concurrent uploads of the same file name never
// collide.
func (c *Client) PresignUpload(ctx context.Context, fileName, prefix string) (*UploadTicket, error) {
	key := objectKey(fileName, prefix)

	req, err := c.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, c.uploadExpiry)
	if err != nil {
		return nil, fmt.Errorf("presigning upload: %w", err)
	}

	return &UploadTicket{
		UploadURL: req.URL,
		FileURL:   c.ObjectURL(key),
		Key:       key,
	}, nil
}

// PresignDownload issues a GET URL for an existing object.
func (c *Client) PresignDownload(ctx context.Context, key string) (string, error) {
	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, c.downloadExpiry)
	if err != nil {
		return "", fmt.Errorf("presigning download: %w", err)
	}
	return req.URL, nil
}

// DeleteObject removes an object from the bucket.
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting object %s: %w", key, err)
	}
	return nil
}

// ObjectURL is the canonical non-presigned URL of an object.
func (c *Client) ObjectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, key)
}

func objectKey(fileName, prefix string) string {
	base := path.Base(strings.TrimSpace(fileName))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	if prefix == "" {
		return uuid.NewString() + "-" + base
	}
	return path.Join(prefix, uuid.NewString()+"-"+base)
}
