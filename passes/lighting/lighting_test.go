// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package lighting

import (
	"strings"
	"testing"

	"github.com/gogpu/rendercore/internal/shader"
)

func TestShaderSource(t *testing.T) {
	for _, want := range []string{"@vertex", "@fragment", "vs_main", "fs_main", "textureLoad", "@binding(1)"} {
		if !strings.Contains(source, want) {
			t.Errorf("shader source missing %q", want)
		}
	}
	code, err := shader.Compile(Name, source)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if code[0] != shader.SPIRVMagic {
		t.Errorf("magic = %#x", code[0])
	}
}

func TestTechnique(t *testing.T) {
	tech := New()
	if tech.Name() != Name {
		t.Errorf("Name() = %q", tech.Name())
	}
	if len(tech.Attachments()) == 0 {
		t.Error("no attachments declared")
	}
}
