package product

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"stride_back_end/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	MaxImageSize = 5 << 20
	maxFormSize  = models.MaxShoeImages*MaxImageSize + 1<<20
)

var allowedImageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// uploadError is shown to the client as is.
type uploadError struct{ msg string }

func (e *uploadError) Error() string { return e.msg }

func checkImages(files []*multipart.FileHeader, existing int) error {
	if existing+len(files) > models.MaxShoeImages {
		return &uploadError{fmt.Sprintf("A shoe can have at most %d images", models.MaxShoeImages)}
	}
	for _, f := range files {
		if _, ok := allowedImageTypes[strings.ToLower(filepath.Ext(f.Filename))]; !ok {
			return &uploadError{"Only .jpg, .jpeg and .png images are allowed"}
		}
		if f.Size > MaxImageSize {
			return &uploadError{"Images must be 5MB or smaller"}
		}
	}
	return nil
}

// saveImages stores files and returns their URLs. On failure the images
// already stored are removed again.
func (h *Handler) saveImages(ctx context.Context, files []*multipart.FileHeader) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, fh := range files {
		url, err := h.saveImage(ctx, fh)
		if err != nil {
			h.deleteImages(ctx, urls)
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (h *Handler) saveImage(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	name := "shoes/" + uuid.NewString() + ext
	return h.storage.Save(ctx, name, allowedImageTypes[ext], f, fh.Size)
}

func (h *Handler) deleteImages(ctx context.Context, urls []string) {
	for _, u := range urls {
		if err := h.storage.Delete(ctx, u); err != nil {
			h.log.Warn("image not deleted", zap.String("url", u), zap.Error(err))
		}
	}
}
