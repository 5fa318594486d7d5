// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build nogpu

package main

import "errors"

func runVulkan(*Config) (*result, error) {
	return nil, errors.New("ngdemo: built with nogpu, the vulkan backend is unavailable")
}
