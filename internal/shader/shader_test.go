// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shader

import (
	"errors"
	"testing"

	"github.com/gogpu/rendercore/shared"
	"github.com/gogpu/rendercore/vk"
	"github.com/gogpu/rendercore/vk/vktest"
)

const triangleWGSL = `
@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    let x = f32(i32(i) - 1);
    let y = f32(i32(i & 1u) * 2 - 1);
    return vec4<f32>(x, y, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

func TestWords(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		want    []uint32
		wantErr bool
	}{
		{"magic only", []byte{0x03, 0x02, 0x23, 0x07}, []uint32{SPIRVMagic}, false},
		{"two words", []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x05, 0x01, 0x00}, []uint32{SPIRVMagic, 0x00010500}, false},
		{"empty", nil, nil, true},
		{"truncated", []byte{0x03, 0x02, 0x23, 0x07, 0x01}, nil, true},
		{"big endian", []byte{0x07, 0x23, 0x02, 0x03}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Words(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrNotSPIRV) {
					t.Fatalf("Words() err = %v, want ErrNotSPIRV", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Words() = %#x, want %#x", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("word %d = %#x, want %#x", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCompile(t *testing.T) {
	w, err := Compile("triangle", triangleWGSL)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(w) < 5 || w[0] != SPIRVMagic {
		t.Fatalf("Compile() produced %d words, header %#x", len(w), w[:min(len(w), 1)])
	}
	hits := CacheStats().Hits
	again, err := Compile("triangle", triangleWGSL)
	if err != nil {
		t.Fatal(err)
	}
	if &again[0] != &w[0] {
		t.Error("second compile not served from cache")
	}
	if CacheStats().Hits != hits+1 {
		t.Errorf("cache hits = %d, want %d", CacheStats().Hits, hits+1)
	}
}

func TestCompileError(t *testing.T) {
	for range 2 {
		if _, err := Compile("broken", "fn main( {"); err == nil {
			t.Fatal("Compile accepted invalid WGSL")
		}
	}
}

func TestNewModule(t *testing.T) {
	d := vktest.New()
	crown, err := shared.NewCrown(d, vktest.NewWindow(8, 8), nil)
	if err != nil {
		t.Fatal(err)
	}
	stem, err := shared.NewStem(crown, nil)
	crown.Release()
	if err != nil {
		t.Fatal(err)
	}

	m, err := NewModule(stem.Device(), "triangle", triangleWGSL)
	if err != nil {
		t.Fatalf("NewModule: %v", err)
	}
	if got := d.Live(vktest.KindShaderModule); got != 1 {
		t.Errorf("live shader modules = %d, want 1", got)
	}
	m.Release()

	d.FailNth("CreateShaderModule", 1, vk.ErrOutOfHostMemory)
	if _, err := NewModule(stem.Device(), "triangle", triangleWGSL); !errors.Is(err, vk.ErrOutOfHostMemory) {
		t.Errorf("NewModule err = %v, want out of host memory", err)
	}

	stem.Release()
	d.AssertClean(t)
}
