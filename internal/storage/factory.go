package storage

import (
	"context"
	"fmt"

	"github.com/sellos-taller/dashboard/internal/config"
)

type FactoryResult struct {
	Driver  string
	Storage Storage
	// Local is set when Driver is "local"; the router mounts its file route.
	Local *Local
}

func FromConfig(ctx context.Context, cfg config.StorageConfig, secret string) (FactoryResult, error) {
	switch cfg.Driver {
	case "", "local":
		l := NewLocal(cfg.LocalDir, cfg.Bucket, cfg.PublicBaseURL, secret)
		return FactoryResult{Driver: "local", Storage: l, Local: l}, nil

	case "s3":
		if cfg.S3Region == "" || cfg.Bucket == "" {
			return FactoryResult{}, fmt.Errorf("S3 config missing: S3_REGION and STORAGE_BUCKET required")
		}
		s, err := NewS3(ctx, S3Config{
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Bucket:          cfg.Bucket,
			PublicBaseURL:   cfg.PublicBaseURL,
		})
		if err != nil {
			return FactoryResult{}, err
		}
		return FactoryResult{Driver: "s3", Storage: s}, nil

	default:
		return FactoryResult{}, fmt.Errorf("unknown STORAGE_DRIVER: %s", cfg.Driver)
	}
}
