// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package rendercore

import (
	"log/slog"

	"github.com/gogpu/rendercore/internal/logging"
)

// SetLogger configures the logger for rendercore and all its sub-packages.
// By default, rendercore produces no log output. Call SetLogger to enable
// logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by rendercore:
//   - [slog.LevelDebug]: object creation and destruction, chosen formats
//   - [slog.LevelInfo]: lifecycle events (device selected, swapchain resurrected)
//   - [slog.LevelWarn]: recoverable problems (device lost, suboptimal swapchain)
//   - [slog.LevelError]: driver validation errors and failed repairs
//
// Driver debug messages are forwarded at the level matching their severity,
// with a "source" attribute of "driver".
//
// Example:
//
//	rendercore.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger used by rendercore.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.L()
}
