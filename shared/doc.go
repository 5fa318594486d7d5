// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package shared holds the three tiers of GPU objects a renderer owns and
// the rules for building and destroying them.
//
// A Crown lives as long as the window (instance, debug messenger, surface).
// A Stem lives as long as the logical device (queues, command buffer,
// per-frame synchronization). A Frond lives as long as one drawable-area
// size (swapchain, views, auxiliary attachments). Each tier holds a counted
// reference to the one above it, so the last Release anywhere tears down
// exactly what is no longer needed, children before parents.
//
// Construction is built from guarded steps (see package guard): a failure
// at any step destroys what the earlier steps created, newest first, and
// leaves nothing behind. A Frond can be retired into a RetiredSwapchain that
// keeps only the old swapchain and the Stem; Resurrect builds the next Frond
// from it and may be retried after any failure.
package shared
