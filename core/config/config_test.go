package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SCREENSHOT_ENABLED",
		"BROWSER_BIN", "BROWSER_HEADLESS",
		"BROWSER_VIEWPORT_WIDTH", "BROWSER_VIEWPORT_HEIGHT", "BROWSER_TIMEOUT_MS",
		"IMAGEKIT_PUBLIC_KEY", "IMAGEKIT_PRIVATE_KEY", "IMAGEKIT_URL_ENDPOINT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	require.True(t, cfg.ScreenshotsEnabled)
	require.True(t, cfg.Browser.Headless)
	require.Equal(t, 1920, cfg.Browser.ViewportWidth)
	require.Equal(t, 1080, cfg.Browser.ViewportHeight)
	require.Equal(t, 30*time.Second, cfg.Browser.NavTimeout)
	require.False(t, cfg.ImageKit.Configured())
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCREENSHOT_ENABLED", "false")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("BROWSER_VIEWPORT_WIDTH", "1280")
	t.Setenv("BROWSER_TIMEOUT_MS", "5000")
	t.Setenv("IMAGEKIT_PUBLIC_KEY", "pub")
	t.Setenv("IMAGEKIT_PRIVATE_KEY", "priv")
	t.Setenv("IMAGEKIT_URL_ENDPOINT", "https://ik.imagekit.io/demo")

	cfg := Load()
	require.False(t, cfg.ScreenshotsEnabled)
	require.False(t, cfg.Browser.Headless)
	require.Equal(t, 1280, cfg.Browser.ViewportWidth)
	require.Equal(t, 5*time.Second, cfg.Browser.NavTimeout)
	require.True(t, cfg.ImageKit.Configured())
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("BROWSER_VIEWPORT_WIDTH", "wide")
	t.Setenv("BROWSER_HEADLESS", "maybe")

	cfg := Load()
	require.Equal(t, 1920, cfg.Browser.ViewportWidth)
	require.True(t, cfg.Browser.Headless)
}

func TestValidateReportsMissingCredentials(t *testing.T) {
	cfg := Config{
		ScreenshotsEnabled: true,
		Browser:            Browser{ViewportWidth: 1920, ViewportHeight: 1080, NavTimeout: time.Second},
		ImageKit:           ImageKit{PublicKey: "pub"},
	}
	problems := cfg.Validate()
	require.Len(t, problems, 2)
	require.Contains(t, problems[0], "IMAGEKIT_PRIVATE_KEY")
	require.Contains(t, problems[1], "IMAGEKIT_URL_ENDPOINT")
}

func TestValidateSkippedWhenScreenshotsDisabled(t *testing.T) {
	cfg := Config{ScreenshotsEnabled: false}
	require.Empty(t, cfg.Validate())
}
