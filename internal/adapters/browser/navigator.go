// Package browser provides Navigator implementations that hand URLs to the user.
package browser

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	pkgbrowser "github.com/pkg/browser"
	"github.com/target/mmk-ui-shell/internal/ports"
)

var (
	_ ports.Navigator = (*SystemNavigator)(nil)
	_ ports.Navigator = (*LogNavigator)(nil)
)

// SystemNavigator opens URLs in the operating system's default browser.
type SystemNavigator struct {
	logger *slog.Logger
	open   func(string) error
}

// NewSystemNavigator returns a navigator that launches the system browser.
func NewSystemNavigator(logger *slog.Logger) *SystemNavigator {
	if logger == nil {
		logger = slog.Default()
	}
	// Keep the launched browser's output off the shell's stdout.
	pkgbrowser.Stdout = io.Discard
	pkgbrowser.Stderr = io.Discard
	return &SystemNavigator{logger: logger, open: pkgbrowser.OpenURL}
}

// Navigate opens target.
func (n *SystemNavigator) Navigate(ctx context.Context, target string) error {
	n.logger.InfoContext(ctx, "opening browser", "url", target)
	if err := n.open(target); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	return nil
}

// LogNavigator logs URLs for headless environments.
type LogNavigator struct {
	logger *slog.Logger
}

// NewLogNavigator returns a navigator that only logs the target URL.
func NewLogNavigator(logger *slog.Logger) *LogNavigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNavigator{logger: logger}
}

// Navigate logs target at info level.
func (n *LogNavigator) Navigate(ctx context.Context, target string) error {
	n.logger.InfoContext(ctx, "navigate to continue", "url", target)
	return nil
}
