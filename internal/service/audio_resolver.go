package service

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/windfall/vntutor_service/internal/client"
	"github.com/windfall/vntutor_service/internal/errors"
)

// R2Reader fetches objects from the Cloudflare R2 audio bucket.
type R2Reader interface {
	GetR2Object(ctx context.Context, key string) ([]byte, error)
}

// GCSReader fetches objects from the configured Google Cloud Storage bucket.
type GCSReader interface {
	BucketName() string
	Download(ctx context.Context, objectName string) ([]byte, error)
}

// AudioResolver turns audio references (r2://key, gs://bucket/object) into
// bytes. Either backend may be nil when not configured.
type AudioResolver struct {
	r2  R2Reader
	gcs GCSReader
}

// NewAudioResolver creates a resolver over the configured backends.
func NewAudioResolver(r2 R2Reader, gcs GCSReader) *AudioResolver {
	return &AudioResolver{r2: r2, gcs: gcs}
}

// Resolve downloads the referenced audio. Malformed, unsupported and missing
// references are validation errors.
func (r *AudioResolver) Resolve(ctx context.Context, uri string) ([]byte, error) {
	scheme, rest, ok := strings.Cut(strings.TrimSpace(uri), "://")
	if !ok || rest == "" {
		return nil, errors.Validation("Đường dẫn âm thanh không hợp lệ")
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(scheme) {
	case "r2":
		if r.r2 == nil {
			return nil, errors.Validation("Kho lưu trữ R2 chưa được cấu hình")
		}
		data, err = r.r2.GetR2Object(ctx, rest)
	case "gs":
		bucket, object, found := strings.Cut(rest, "/")
		if !found || bucket == "" || object == "" {
			return nil, errors.Validation("Đường dẫn âm thanh không hợp lệ")
		}
		if r.gcs == nil {
			return nil, errors.Validation("Kho lưu trữ GCS chưa được cấu hình")
		}
		if bucket != r.gcs.BucketName() {
			return nil, errors.Validation("Không được phép truy cập kho lưu trữ này")
		}
		data, err = r.gcs.Download(ctx, object)
	default:
		return nil, errors.Validation("Không hỗ trợ đường dẫn âm thanh này")
	}

	if stderrors.Is(err, client.ErrObjectNotFound) {
		return nil, errors.Wrap(errors.ErrValidation, "Không tìm thấy tệp âm thanh", err)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrStorageService, "Không thể tải tệp âm thanh", err)
	}
	if len(data) == 0 {
		return nil, errors.Validation("Tệp âm thanh rỗng")
	}
	return data, nil
}
