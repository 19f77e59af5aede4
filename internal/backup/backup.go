// Package backup implements the privileged backup operation: an encrypted
// snapshot of the credential document uploaded to S3-compatible storage.
// When no bucket is configured the operation degrades to a well-formed
// "not configured" answer instead of an error.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/config"
	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

// uploader is the slice of the S3 client the service needs; a test seam.
type uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Service struct {
	cfg    *config.Config
	logger logging.Logger
	client uploader // lazily initialized; replaceable in tests
}

func NewService(cfg *config.Config, logger logging.Logger) *Service {
	return &Service{cfg: cfg, logger: logger}
}

// Configured reports whether an upload target is set.
func (s *Service) Configured() bool {
	return s.cfg.S3Bucket != "" && s.cfg.S3BaseEndpoint != ""
}

func (s *Service) getClient(ctx context.Context) (uploader, error) {
	if s.client != nil {
		return s.client, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(s.cfg.S3Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.S3RootUser, s.cfg.S3RootPassword, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.cfg.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return s.client, nil
}

// Run encrypts snapshot and uploads it, returning the object key. The
// encryption key is derived from the configured secret with a fresh random
// salt; the salt is prepended to the sealed payload so the snapshot can be
// decrypted with the secret alone.
func (s *Service) Run(ctx context.Context, snapshot []byte) (string, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	salt := common.GenerateRandByteArray(16)
	sealed, err := cryptox.Seal(snapshot, cryptox.DeriveKey([]byte(s.cfg.SecretKey), salt))
	if err != nil {
		return "", fmt.Errorf("%w: seal snapshot: %v", common.ErrStorage, err)
	}
	body := append(salt, sealed...)

	key := fmt.Sprintf("backups/users-%s-%s.json.enc",
		time.Now().UTC().Format("20060102T150405Z"), uuid.NewString()[:8])

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.S3Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return "", fmt.Errorf("%w: upload backup: %v", common.ErrStorage, err)
	}

	s.logger.Info(ctx, "credential backup uploaded", "bucket", s.cfg.S3Bucket, "key", key)
	return key, nil
}
