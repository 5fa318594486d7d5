// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shared

import (
	"testing"

	"github.com/gogpu/rendercore/vk"
	"github.com/gogpu/rendercore/vk/vktest"
)

func testCrownConfig() *CrownConfig {
	cfg := DefaultCrownConfig()
	cfg.Validation = true
	return cfg
}

func newTestCrown(t *testing.T, d *vktest.Driver, w vk.Window) *Crown {
	t.Helper()
	c, err := NewCrown(d, w, testCrownConfig())
	if err != nil {
		t.Fatalf("NewCrown: %v", err)
	}
	return c
}

// newTestStem returns a Stem holding the only reference to its Crown.
func newTestStem(t *testing.T, d *vktest.Driver, w vk.Window) *Stem {
	t.Helper()
	c := newTestCrown(t, d, w)
	defer c.Release()
	s, err := NewStem(c, nil)
	if err != nil {
		t.Fatalf("NewStem: %v", err)
	}
	return s
}

func gbufferConfig() *FrondConfig {
	cfg := DefaultFrondConfig()
	cfg.Attachments = []AttachmentSpec{
		{Name: "diffuse", Format: vk.FormatR8G8B8A8Unorm, Usage: vk.UsageColorAttachment | vk.UsageSampled, Aspect: vk.AspectColor},
		{Name: "depth", Format: vk.FormatD24UnormS8Uint, Usage: vk.UsageDepthStencilAttachment, Aspect: vk.AspectDepth},
	}
	return cfg
}
