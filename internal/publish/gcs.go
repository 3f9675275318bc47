package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

var errBadGCSURL = errors.New("invalid gs:// URL")

// GCSLocation is a bucket and an object prefix.
type GCSLocation struct {
	Bucket string
	Prefix string
}

// IsGCSURL reports whether url points at Cloud Storage.
func IsGCSURL(url string) bool {
	return strings.HasPrefix(url, "gs://")
}

// ParseGCSURL splits gs://bucket/prefix.
func ParseGCSURL(url string) (GCSLocation, error) {
	rest, ok := strings.CutPrefix(url, "gs://")
	if !ok {
		return GCSLocation{}, fmt.Errorf("%w: %s", errBadGCSURL, url)
	}

	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return GCSLocation{}, fmt.Errorf("%w: %s", errBadGCSURL, url)
	}

	return GCSLocation{Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
}

// ObjectName is where an artifact is stored: {prefix}/{run-id}/{file}.
func (l GCSLocation) ObjectName(a Artifact) string {
	return path.Join(l.Prefix, a.RunID, filepath.Base(a.Path))
}

// GCSUploader writes record files to a Cloud Storage bucket.
type GCSUploader struct {
	location GCSLocation
	client   *storage.Client
}

var (
	_ Publisher = (*GCSUploader)(nil)
	_ Closer    = (*GCSUploader)(nil)
)

// NewGCSUploader creates an uploader using application default credentials,
// or the given service account file.
func NewGCSUploader(ctx context.Context, url, credentialsFile string) (*GCSUploader, error) {
	location, err := ParseGCSURL(url)
	if err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSUploader{location: location, client: client}, nil
}

// Name implements Publisher.
func (u *GCSUploader) Name() string { return "gcs" }

// Publish uploads the record file.
func (u *GCSUploader) Publish(ctx context.Context, a Artifact) error {
	data, err := os.ReadFile(a.Path) //nolint:gosec // G304: record written by this run
	if err != nil {
		return fmt.Errorf("reading %s: %w", a.Path, err)
	}

	object := u.location.ObjectName(a)

	w := u.client.Bucket(u.location.Bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write error: %w", err)
	}

	if err := w.Close(); err != nil {
		return fmt.Errorf("close error: %w", err)
	}

	return nil
}

// Close releases the storage client.
func (u *GCSUploader) Close() error {
	return u.client.Close()
}
