// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package shared

import "github.com/gogpu/rendercore/vk"

// SelectMemoryType returns the index of the first memory type allowed by
// reqs.TypeBits whose properties include every bit of flags. It is pure: the
// same inputs always give the same answer.
func SelectMemoryType(props vk.MemoryProperties, reqs vk.MemoryRequirements, flags vk.MemoryPropertyFlags) (uint32, bool) {
	for i, t := range props.Types {
		if i >= 32 {
			break
		}
		if reqs.TypeBits&(1<<uint(i)) != 0 && t.Flags.Has(flags) {
			return uint32(i), true
		}
	}
	return 0, false
}

// MemorySelector picks a memory type for the given requirements.
type MemorySelector func(vk.MemoryRequirements) (uint32, error)

// RequireMemory returns a selector over props that demands flags. It fails
// with a *MemoryTypeError.
func RequireMemory(props vk.MemoryProperties, flags vk.MemoryPropertyFlags) MemorySelector {
	return func(reqs vk.MemoryRequirements) (uint32, error) {
		i, ok := SelectMemoryType(props, reqs, flags)
		if !ok {
			return 0, &MemoryTypeError{Requirements: reqs, Flags: flags}
		}
		return i, nil
	}
}
