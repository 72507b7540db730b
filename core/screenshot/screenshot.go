// Package screenshot captures full-page screenshots of source pages with a
// headless Chromium session driven over CDP. A capture failure is always
// recoverable: callers log it and continue without a screenshot.
package screenshot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"beceharvest/core"
	"beceharvest/core/config"
)

// Session owns one browser process, reused across every capture in a batch.
type Session struct {
	cfg     config.Browser
	lnch    *launcher.Launcher
	browser *rod.Browser
	log     *slog.Logger
}

// NewSession launches Chromium and connects to it.
func NewSession(cfg config.Browser) (*Session, error) {
	lnch := launcher.New().Headless(cfg.Headless)
	if cfg.Bin != "" {
		lnch = lnch.Bin(cfg.Bin)
	}
	u, err := lnch.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: launching browser: %v", core.ErrCapture, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		lnch.Kill()
		return nil, fmt.Errorf("%w: connecting to browser: %v", core.ErrCapture, err)
	}

	return &Session{cfg: cfg, lnch: lnch, browser: browser, log: slog.Default()}, nil
}

// Capture navigates to the URL and returns a full-page PNG.
func (s *Session) Capture(ctx context.Context, url string) ([]byte, error) {
	page, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("%w: creating page: %v", core.ErrCapture, err)
	}
	defer page.Close()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.ViewportWidth,
		Height:            s.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("%w: setting viewport: %v", core.ErrCapture, err)
	}

	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(url); err != nil {
		return nil, fmt.Errorf("%w: navigating to %s: %v", core.ErrCapture, url, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		// Slow third-party assets should not sink the capture.
		s.log.Warn("page load wait timed out, capturing anyway", "url", url, "error", err)
	}

	data, err := page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: capturing %s: %v", core.ErrCapture, url, err)
	}
	return data, nil
}

// Close shuts down the browser process.
func (s *Session) Close() error {
	err := s.browser.Close()
	s.lnch.Cleanup()
	return err
}
