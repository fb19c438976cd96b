// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package feedback implements per-response like/dislike ratings.
//
// Each completed exchange gets a Machine:
//
//	unrated --Like--> rated-positive
//	unrated --Dislike--> awaiting-correction
//	awaiting-correction --SubmitCorrection--> rated-negative (trimmed text)
//	awaiting-correction --CloseCorrection/ClickOutside--> rated-negative (no text)
//
// The first dismissal of the correction surface wins and every later command
// is rejected, so exactly one Record is produced per exchange. The Tracker
// submits that record through the transport once and only logs failures.
package feedback
