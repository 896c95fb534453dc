package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

// ErrObjectExists is returned when an upload targets a path that is
// already occupied. Callers always generate fresh unique paths, so
// hitting this means a retry raced an earlier successful upload.
var ErrObjectExists = errors.New("object already exists")

// MediaStore uploads incident media (photos, audio) to MinIO and hands
// back public retrieval URLs.
type MediaStore struct {
	client         *minio.Client
	bucketName     string
	endpoint       string
	publicEndpoint string
	useSSL         bool
}

// NewMediaStore creates a new MinIO-backed media store.
func NewMediaStore(endpoint, publicEndpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MediaStore, error) {
	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	if publicEndpoint == "" {
		publicEndpoint = endpoint
	}
	publicEndpoint = strings.TrimSuffix(strings.TrimSpace(publicEndpoint), "/")

	store := &MediaStore{
		client:         minioClient,
		bucketName:     bucketName,
		endpoint:       endpoint,
		publicEndpoint: publicEndpoint,
		useSSL:         useSSL,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// The bucket check is best effort: the agent must keep running while
	// the media endpoint is unreachable, uploads just fail transiently.
	exists, err := minioClient.BucketExists(ctx, bucketName)
	if err != nil {
		log.Warn().Err(err).Msgf("Failed to check bucket existence for %s (will continue)", bucketName)
	} else if !exists {
		if err := minioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			log.Error().Err(err).Msgf("Failed to create bucket %s", bucketName)
		} else {
			log.Info().Msgf("Bucket %s created successfully", bucketName)

			policy := fmt.Sprintf(`{"Version": "2012-10-17","Statement": [{"Action": ["s3:GetObject"],"Effect": "Allow","Principal": {"AWS": ["*"]},"Resource": ["arn:aws:s3:::%s/*"],"Sid": ""}]}`, bucketName)
			if err := minioClient.SetBucketPolicy(ctx, bucketName, policy); err != nil {
				log.Error().Err(err).Msg("Failed to set bucket policy")
			}
		}
	}

	log.Info().
		Str("endpoint", endpoint).
		Str("public_endpoint", publicEndpoint).
		Str("bucket", bucketName).
		Msg("Media store initialized")

	return store, nil
}

// Upload stores raw bytes under the given object path and returns the
// public URL. A duplicate path is rejected with ErrObjectExists,
// distinct from network or storage errors.
func (s *MediaStore) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	_, err := s.client.StatObject(ctx, s.bucketName, objectPath, minio.StatObjectOptions{})
	if err == nil {
		return "", fmt.Errorf("path %q: %w", objectPath, ErrObjectExists)
	}
	if resp := minio.ToErrorResponse(err); resp.Code != "NoSuchKey" {
		return "", fmt.Errorf("failed to check object %q: %w", objectPath, err)
	}

	_, err = s.client.PutObject(
		ctx,
		s.bucketName,
		objectPath,
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return "", fmt.Errorf("failed to upload object %q: %w", objectPath, err)
	}

	publicURL := s.ObjectURL(objectPath)

	log.Info().
		Str("key", objectPath).
		Str("url", publicURL).
		Int("size", len(data)).
		Msg("Media uploaded successfully")

	return publicURL, nil
}

// ObjectURL returns the public retrieval URL for an object key.
func (s *MediaStore) ObjectURL(objectKey string) string {
	if strings.Contains(s.publicEndpoint, "://") {
		return fmt.Sprintf("%s/%s/%s", s.publicEndpoint, s.bucketName, objectKey)
	}
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.publicEndpoint, s.bucketName, objectKey)
}

// HealthCheck verifies the MinIO connection.
func (s *MediaStore) HealthCheck(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("media store health check failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket '%s' does not exist", s.bucketName)
	}
	return nil
}
