// Copyright (c) 2025 BVK Chaitanya

// Package objstore copies backups and path files to and from an S3
// compatible object store.
package objstore

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type Options struct {
	// Endpoint is the S3 compatible endpoint URL. Empty uses AWS S3.
	Endpoint string

	Region string

	Bucket string

	// AccessKey and SecretKey are static credentials. When empty, credentials
	// come from the default AWS credential chain.
	AccessKey string
	SecretKey string

	// ForcePathStyle puts the bucket name in the path instead of the host
	// name. Most S3 compatible stores need it.
	ForcePathStyle bool
}

func (v *Options) setDefaults() {
	if len(v.Region) == 0 {
		v.Region = "us-east-1"
	}
}

type Client struct {
	s3 *s3.Client

	bucket string
}

func New(ctx context.Context, opts *Options) (*Client, error) {
	o := *opts
	o.setDefaults()
	if len(o.Bucket) == 0 {
		return nil, fmt.Errorf("bucket name cannot be empty")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(o.Region),
	}
	if len(o.AccessKey) != 0 {
		creds := credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")
		loadOpts = append(loadOpts, config.WithCredentialsProvider(creds))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("could not load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(so *s3.Options) {
		if len(o.Endpoint) != 0 {
			so.BaseEndpoint = aws.String(o.Endpoint)
		}
		so.UsePathStyle = o.ForcePathStyle
	})
	return &Client{s3: client, bucket: o.Bucket}, nil
}

func (c *Client) Bucket() string {
	return c.bucket
}

// Upload copies the reader contents into the object at key. Large inputs are
// uploaded in parts.
func (c *Client) Upload(ctx context.Context, key string, r io.Reader) error {
	uploader := manager.NewUploader(c.s3)
	input := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if _, err := uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("could not upload s3://%s/%s: %w", c.bucket, key, err)
	}
	return nil
}

// Open returns a reader for the object at key. Caller must close the reader.
func (c *Client) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("could not get s3://%s/%s: %w", c.bucket, key, err)
	}
	return out.Body, nil
}
