// Package imagekit is a minimal client for the ImageKit upload REST API,
// covering only what the screenshot chain needs: authenticated multipart
// uploads into a deterministic folder tree.
package imagekit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"beceharvest/core"
	"beceharvest/core/config"
	"beceharvest/core/retry"
)

const defaultUploadURL = "https://upload.imagekit.io/api/v1/files/upload"

// Client uploads screenshots to ImageKit.
type Client struct {
	http      *resty.Client
	cfg       config.ImageKit
	uploadURL string
	policy    retry.Policy
	log       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithUploadURL overrides the upload endpoint.
func WithUploadURL(u string) Option {
	return func(c *Client) { c.uploadURL = u }
}

// WithPolicy overrides the retry policy.
func WithPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// New creates a Client from the loaded ImageKit credentials.
func New(cfg config.ImageKit, opts ...Option) *Client {
	c := &Client{
		http:      resty.New().SetTimeout(60 * time.Second),
		cfg:       cfg,
		uploadURL: defaultUploadURL,
		policy:    retry.Default,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the client has a full credential set.
func (c *Client) Configured() bool {
	return c.cfg.Configured()
}

// Upload sends the screenshot with bounded exponential-backoff retries.
// The private key authenticates as the basic-auth username, per the
// ImageKit upload API.
func (c *Client) Upload(ctx context.Context, req core.UploadRequest) (*core.UploadResult, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("%w: imagekit credentials not configured", core.ErrUpload)
	}

	form := map[string]string{
		"fileName":          req.FileName,
		"folder":            req.Folder,
		"tags":              strings.Join(req.Tags, ","),
		"useUniqueFileName": "false",
	}
	if req.SourceURL != "" {
		meta, err := json.Marshal(map[string]string{"source_url": req.SourceURL})
		if err == nil {
			form["customMetadata"] = string(meta)
		}
	}

	var result core.UploadResult
	err := c.policy.Do(ctx, func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBasicAuth(c.cfg.PrivateKey, "").
			SetFileReader("file", req.FileName, bytes.NewReader(req.Data)).
			SetFormData(form).
			SetResult(&result).
			Post(c.uploadURL)
		if err != nil {
			return err
		}
		if resp.IsError() {
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), resp.String())
		}
		if result.URL == "" {
			return fmt.Errorf("upload response missing url")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrUpload, req.FileName, err)
	}

	c.log.Info("screenshot uploaded", "url", result.URL, "file", req.FileName)
	return &result, nil
}

// Folder returns the remote folder for a subject-year pair.
func Folder(subject string, year int) string {
	return fmt.Sprintf("/screenshots/%s/%d/", subject, year)
}

// FileName embeds subject, year and a capture timestamp so successive runs
// never collide.
func FileName(subject string, year int, t time.Time) string {
	return fmt.Sprintf("%s_%d_%s.png", subject, year, t.Format("20060102_150405"))
}
