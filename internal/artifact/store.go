// Package artifact stores run outputs (Silver files, quarantine files, quality
// reports) either in a local directory or in an S3-compatible bucket.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when an artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// Store persists named artifacts. Names are slash-separated relative paths
// such as "silver/customers.csv".
type Store interface {
	// Put writes an artifact, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error
	// Get reads an artifact back. Missing artifacts yield ErrNotFound.
	Get(ctx context.Context, name string) ([]byte, error)
	// List returns the names under a prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	// Location describes where an artifact lives, for logs and reports.
	Location(name string) string
}

// Config selects and configures a store.
type Config struct {
	// Type is "local" (default) or "s3".
	Type string `koanf:"type"`
	// Path is the output directory for the local store.
	Path string `koanf:"path"`

	Endpoint  string `koanf:"endpoint"`
	Bucket    string `koanf:"bucket"`
	Prefix    string `koanf:"prefix"`
	Region    string `koanf:"region"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	UseSSL    bool   `koanf:"use_ssl"`
}

// Open creates the store described by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "local":
		return NewLocalStore(cfg.Path)
	case "s3", "minio":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown artifact store type %q (want local or s3)", cfg.Type)
	}
}

// cleanName validates an artifact name and normalizes its separators.
func cleanName(name string) (string, error) {
	name = strings.Trim(strings.ReplaceAll(name, "\\", "/"), "/")
	if name == "" {
		return "", errors.New("artifact name is required")
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." || part == "." || part == "" {
			return "", fmt.Errorf("invalid artifact name %q", name)
		}
	}
	return name, nil
}
