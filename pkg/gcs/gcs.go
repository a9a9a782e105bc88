// Package gcs uploads generated assets to a public Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"
)

type Config struct {
	Bucket        string `envconfig:"BUCKET" split_words:"true" required:"true"`
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL" split_words:"true" default:"https://storage.googleapis.com"`
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Bucket) == "" {
		return errors.New("gcs bucket is required")
	}
	return nil
}

type Uploader struct {
	client  *storage.Client
	bucket  string
	baseURL string
}

func NewUploader(ctx context.Context, cfg Config) (*Uploader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs: create client: %w", err)
	}
	return &Uploader{
		client:  client,
		bucket:  strings.TrimSpace(cfg.Bucket),
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
	}, nil
}

// Upload writes data to name and returns its public URL.
func (u *Uploader) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	w := u.client.Bucket(u.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs: write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs: finalize %s: %w", name, err)
	}
	return PublicURL(u.baseURL, u.bucket, name), nil
}

func (u *Uploader) Close() error {
	return u.client.Close()
}

func PublicURL(baseURL, bucket, name string) string {
	if baseURL == "" {
		baseURL = "https://storage.googleapis.com"
	}
	return baseURL + "/" + bucket + "/" + url.PathEscape(name)
}
