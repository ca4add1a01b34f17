package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"

	"github.com/genaker/agento/internal/config"
)

type S3FileStorage struct {
	client *s3.Client
	cfg    *config.S3Config
}

func NewS3FileStorage(cfg *config.S3Config) (*S3FileStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("s3 config is not set")
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	credentialsProvider := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	awsCfg, err := awsConfig.LoadDefaultConfig(
		context.TODO(),
		awsConfig.WithRegion(region),
		awsConfig.WithCredentialsProvider(credentialsProvider),
	)
	if err != nil {
		return nil, err
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3FileStorage{
		client: s3Client,
		cfg:    cfg,
	}, nil
}

func (u *S3FileStorage) key(file FileInfo) string {
	folder := strings.Trim(u.cfg.Folder, "/")
	if folder == "" {
		return file.Name + file.Extension
	}

	return fmt.Sprintf("%s/%s%s", folder, file.Name, file.Extension)
}

func (u *S3FileStorage) Upload(ctx context.Context, file FileInfo) (string, error) {
	content, err := io.ReadAll(file.Content)
	if err != nil {
		return "", fmt.Errorf("failed to read upload content: %w", err)
	}

	mtype := file.ContentType
	if mtype == "" {
		mtype = mimetype.Detect(content).String()
	}

	key := u.key(file)
	input := s3.PutObjectInput{
		Key:         aws.String(key),
		ContentType: aws.String(mtype),
		Bucket:      aws.String(u.cfg.Bucket),
		Body:        bytes.NewReader(content),
		ACL:         types.ObjectCannedACLPublicRead,
	}
	if _, err := u.client.PutObject(ctx, &input); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	return u.publicURL(key)
}

func (u *S3FileStorage) publicURL(key string) (string, error) {
	if u.cfg.PublicURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimSuffix(u.cfg.PublicURL, "/"), key), nil
	}

	switch {
	case strings.Contains(u.cfg.EndpointURL, "digitaloceanspaces.com"):
		return fmt.Sprintf("https://%s.%s.cdn.digitaloceanspaces.com/%s", u.cfg.Bucket, u.cfg.Region, key), nil

	case strings.Contains(u.cfg.EndpointURL, "amazonaws.com"):
		endpoint := strings.TrimPrefix(u.cfg.EndpointURL, "https://")
		endpoint = strings.TrimSuffix(endpoint, "/")
		return fmt.Sprintf("https://%s.%s/%s", u.cfg.Bucket, endpoint, key), nil

	default:
		return "", ErrPublicURLUnknown
	}
}
