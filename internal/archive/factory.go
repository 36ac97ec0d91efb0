package archive

import (
	"context"
	"fmt"

	"dupes-go/internal/config"
	"dupes-go/internal/dupes"
)

// NewArchiveFromConfig creates an Archive implementation based on the
// archive config type. Type "none" (or empty) returns a nil archive,
// meaning deleted duplicates are not archived.
func NewArchiveFromConfig(cfg config.ArchiveConfig) (dupes.Archive, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryArchive(), nil
	case "filesystem":
		if cfg.Root == "" {
			return nil, fmt.Errorf("filesystem archive requires root to be set")
		}
		return NewFileSystemArchive(cfg.Root)
	case "s3":
		return NewS3Archive(context.Background(), S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown archive type: %s", cfg.Type)
	}
}
