package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
)

// ImageStorage stores uploaded product images and returns their public URL.
type ImageStorage interface {
	Save(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error)
	Delete(ctx context.Context, url string) error
}

// LocalStorage writes images under Dir and serves them from BaseURL.
type LocalStorage struct {
	Dir     string
	BaseURL string
}

func NewLocalStorage(dir, baseURL string) *LocalStorage {
	return &LocalStorage{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

func (s *LocalStorage) Save(_ context.Context, name, _ string, r io.Reader, _ int64) (string, error) {
	name = path.Clean("/" + name)[1:]
	dst := filepath.Join(s.Dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return s.BaseURL + "/" + name, nil
}

func (s *LocalStorage) Delete(_ context.Context, url string) error {
	name, ok := strings.CutPrefix(url, s.BaseURL+"/")
	if !ok {
		return nil
	}
	name = path.Clean("/" + name)[1:]
	err := os.Remove(filepath.Join(s.Dir, filepath.FromSlash(name)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MinIOStorage puts images in a bucket. PublicURL is the address clients
// reach the bucket through, e.g. a CDN in front of MinIO.
type MinIOStorage struct {
	Client    *minio.Client
	Bucket    string
	PublicURL string
}

func NewMinIOStorage(client *minio.Client, bucket, publicURL string) *MinIOStorage {
	if publicURL == "" {
		publicURL = client.EndpointURL().String() + "/" + bucket
	}
	return &MinIOStorage{Client: client, Bucket: bucket, PublicURL: strings.TrimRight(publicURL, "/")}
}

func (s *MinIOStorage) Save(ctx context.Context, name, contentType string, r io.Reader, size int64) (string, error) {
	_, err := s.Client.PutObject(ctx, s.Bucket, name, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", name, err)
	}
	return s.PublicURL + "/" + name, nil
}

func (s *MinIOStorage) Delete(ctx context.Context, url string) error {
	name, ok := strings.CutPrefix(url, s.PublicURL+"/")
	if !ok {
		return nil
	}
	if err := s.Client.RemoveObject(ctx, s.Bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", name, err)
	}
	return nil
}
