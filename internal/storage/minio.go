// Package storage puts uploaded files into MinIO. Upgrade documents land under
// the documents/ prefix, profile pictures under profiles/; object names are
// timestamp-prefixed to avoid collisions between same-named uploads.
package storage

import (
	"context"
	"fmt"
	"mime/multipart"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"

	"github.com/lromero/commerce-api/internal/models"
)

const (
	documentsPrefix = "documents"
	profilesPrefix  = "profiles"
)

// Uploader receives multipart files and returns stored-file descriptors.
type Uploader interface {
	SaveDocuments(ctx context.Context, files []*multipart.FileHeader) ([]models.StoredFile, error)
	SaveProfilePic(ctx context.Context, file *multipart.FileHeader) (models.StoredFile, error)
}

type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore connects to MinIO and makes sure the upload bucket exists.
func NewMinioStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio connect: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		log.Info().Str("bucket", bucket).Msg("created upload bucket")
	}

	return &MinioStore{client: client, bucket: bucket}, nil
}

func (s *MinioStore) SaveDocuments(ctx context.Context, files []*multipart.FileHeader) ([]models.StoredFile, error) {
	stored := make([]models.StoredFile, 0, len(files))
	for _, fh := range files {
		sf, err := s.save(ctx, documentsPrefix, fh)
		if err != nil {
			return nil, err
		}
		stored = append(stored, sf)
	}
	return stored, nil
}

func (s *MinioStore) SaveProfilePic(ctx context.Context, file *multipart.FileHeader) (models.StoredFile, error) {
	return s.save(ctx, profilesPrefix, file)
}

func (s *MinioStore) save(ctx context.Context, prefix string, fh *multipart.FileHeader) (models.StoredFile, error) {
	f, err := fh.Open()
	if err != nil {
		return models.StoredFile{}, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	objectName := fmt.Sprintf("%s/%d_%s", prefix, time.Now().UnixMilli(), fh.Filename)
	_, err = s.client.PutObject(ctx, s.bucket, objectName, f, fh.Size,
		minio.PutObjectOptions{ContentType: fh.Header.Get("Content-Type")})
	if err != nil {
		return models.StoredFile{}, fmt.Errorf("store upload %q: %w", fh.Filename, err)
	}

	return models.StoredFile{Filename: objectName, OriginalName: fh.Filename}, nil
}
