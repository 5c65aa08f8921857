package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"blackbox-backend/config"
)

// defaultImageSuffix marks the bundled placeholder image that ships with the
// kiosk frontend. It must never be deleted from storage.
const defaultImageSuffix = "/product_img/download.png"

// Client talks to the hosted object-storage REST API (Supabase storage).
type Client struct {
	baseURL string
	key     string
	bucket  string
	client  *http.Client
}

// NewClient creates a storage client from configuration.
func NewClient(cfg *config.StorageConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		key:     cfg.Key,
		bucket:  cfg.Bucket,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ObjectPath builds the bucket path convention used for uploaded assets:
// {machine_id}/{entity}/{column}/{filename}.
func ObjectPath(machineID, entity, column, filename string) string {
	return fmt.Sprintf("%s/%s/%s/%s", machineID, entity, column, filename)
}

// Upload stores an object and returns its public URL.
func (c *Client) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, objectPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("upload %s: status %d: %s", objectPath, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return c.PublicURL(objectPath), nil
}

// PublicURL returns the public URL for an object path.
func (c *Client) PublicURL(objectPath string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, objectPath)
}

// Delete removes an object from the bucket.
func (c *Client) Delete(ctx context.Context, objectPath string) error {
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, objectPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.key)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete %s: %w", objectPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delete %s: status %d", objectPath, resp.StatusCode)
	}
	return nil
}

// Deletable reports whether a public URL points at a stored image we own.
// Default placeholder images and URLs outside the bucket are off limits.
func (c *Client) Deletable(publicURL string) bool {
	if publicURL == "" || strings.HasSuffix(publicURL, defaultImageSuffix) {
		return false
	}
	return strings.Contains(publicURL, "/"+c.bucket+"/")
}

// DeleteByPublicURL resolves a public URL back to its object path and
// deletes the object. Non-deletable URLs are silently skipped.
func (c *Client) DeleteByPublicURL(ctx context.Context, publicURL string) error {
	if !c.Deletable(publicURL) {
		return nil
	}
	marker := fmt.Sprintf("/object/public/%s/", c.bucket)
	idx := strings.Index(publicURL, marker)
	if idx < 0 {
		return fmt.Errorf("cannot resolve object path from %q", publicURL)
	}
	return c.Delete(ctx, publicURL[idx+len(marker):])
}
