// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"hash/fnv"
)

// =============================================================================
// VIEWPORT OPTIMIZER
// =============================================================================

// ViewportOptimizer skips viewport updates whose content did not change.
// Paced reveals produce an event per unit; many redraws (tag units, frames
// with nothing new) leave the rendered timeline identical.
type ViewportOptimizer struct {
	lastHash uint64
	seen     bool
	updates  uint64
	skips    uint64
}

// NewViewportOptimizer creates an optimizer that accepts the first update.
func NewViewportOptimizer() *ViewportOptimizer {
	return &ViewportOptimizer{}
}

// ShouldUpdate reports whether content differs from the last accepted one.
func (vo *ViewportOptimizer) ShouldUpdate(content string) bool {
	vo.updates++
	h := hashContent(content)
	if vo.seen && h == vo.lastHash {
		vo.skips++
		return false
	}
	vo.seen = true
	vo.lastHash = h
	return true
}

// Reset forces the next update through.
func (vo *ViewportOptimizer) Reset() {
	vo.seen = false
}

// Stats returns the number of update attempts and how many were skipped.
func (vo *ViewportOptimizer) Stats() (total, skipped uint64) {
	return vo.updates, vo.skips
}

func hashContent(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}
