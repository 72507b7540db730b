// Package config loads the process configuration from environment variables
// exactly once at startup. The resulting struct is passed by reference
// through constructors; nothing deeper in the pipeline reads the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Browser configures the headless Chromium session used for page screenshots.
type Browser struct {
	// Bin is an optional path to a Chromium binary. Empty means rod's
	// launcher locates or downloads one.
	Bin            string
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
	NavTimeout     time.Duration
}

// ImageKit holds the credentials for the cloud image store.
type ImageKit struct {
	PublicKey   string
	PrivateKey  string
	URLEndpoint string
}

// Configured reports whether all required ImageKit credentials are present.
func (k ImageKit) Configured() bool {
	return k.PublicKey != "" && k.PrivateKey != "" && k.URLEndpoint != ""
}

// Config is the full process configuration.
type Config struct {
	ScreenshotsEnabled bool
	Browser            Browser
	ImageKit           ImageKit
}

// Load reads the configuration from the environment, applying defaults for
// anything unset.
func Load() Config {
	return Config{
		ScreenshotsEnabled: envBool("SCREENSHOT_ENABLED", true),
		Browser: Browser{
			Bin:            os.Getenv("BROWSER_BIN"),
			Headless:       envBool("BROWSER_HEADLESS", true),
			ViewportWidth:  envInt("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: envInt("BROWSER_VIEWPORT_HEIGHT", 1080),
			NavTimeout:     time.Duration(envInt("BROWSER_TIMEOUT_MS", 30000)) * time.Millisecond,
		},
		ImageKit: ImageKit{
			PublicKey:   os.Getenv("IMAGEKIT_PUBLIC_KEY"),
			PrivateKey:  os.Getenv("IMAGEKIT_PRIVATE_KEY"),
			URLEndpoint: os.Getenv("IMAGEKIT_URL_ENDPOINT"),
		},
	}
}

// Validate checks the configuration and returns the problems found. A
// missing ImageKit credential set is reported but only matters when
// screenshots are enabled; callers typically disable the screenshot chain
// rather than abort.
func (c Config) Validate() []string {
	var problems []string
	if !c.ScreenshotsEnabled {
		return nil
	}
	if !c.ImageKit.Configured() {
		for _, v := range []struct{ name, val string }{
			{"IMAGEKIT_PUBLIC_KEY", c.ImageKit.PublicKey},
			{"IMAGEKIT_PRIVATE_KEY", c.ImageKit.PrivateKey},
			{"IMAGEKIT_URL_ENDPOINT", c.ImageKit.URLEndpoint},
		} {
			if v.val == "" {
				problems = append(problems, fmt.Sprintf("missing environment variable %s", v.name))
			}
		}
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		problems = append(problems, "viewport dimensions must be positive")
	}
	if c.Browser.NavTimeout <= 0 {
		problems = append(problems, "browser timeout must be positive")
	}
	return problems
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
