// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by the terminal front ends.
//
// String helpers measure and cut text in terminal columns, so labels with
// accents, CJK or emoji line up in the sidebar and toasts:
//
//	label := util.TruncateWidth(util.SingleLine(text), 24)
//
// AtomicWriteFile is used when saving the configuration file, which may hold
// the backend password.
package util
