package objectstore

import (
	"context"
	"fmt"

	"github.com/regulation-registry/core/internal/config"
)

// New builds the Store backend selected by cfg.StorageMode, grounded on
// original_source/app/infra/storage.py::make_storage's STORAGE_MODE switch.
func New(ctx context.Context, cfg config.Config) (Store, error) {
	switch cfg.StorageMode {
	case "local":
		return NewLocalStore(cfg.StorageRoot)
	case "s3":
		return NewS3Store(ctx, S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3EndpointURL,
			AccessKey:    cfg.S3AccessKeyID,
			SecretKey:    cfg.S3SecretAccessKey,
			UsePathStyle: cfg.S3EndpointURL != "",
		})
	default:
		return nil, fmt.Errorf("objectstore: unknown storage mode %q", cfg.StorageMode)
	}
}
