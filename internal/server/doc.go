// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides a development chat backend.
//
// It serves the contract the chat client talks to, backed by SQLite, so the
// client can be run and tested without the production deployment.
//
// # Endpoints
//
//   - POST /login           - form login, JSON reply for XHR callers
//   - GET  /logout          - drop the session cookie
//   - POST /ask             - {"message"} -> {"text","timestamp"}
//   - POST /ask_stream      - {"message"} -> raw UTF-8 text in chunks
//   - POST /feedback        - store a rating and optional correction
//   - GET  /get_shortcuts   - {"shortcuts":[{"id","text"}]}, newest first
//   - POST /add_shortcut    - {"text"} -> {"success","id","text"}
//   - POST /delete_shortcut - {"id"} -> {"success"}, 404 when missing
//   - GET  /health          - liveness
//
// Every endpoint except login and health redirects to /login without a
// valid session cookie.
//
// # Usage
//
//	srv, err := server.New(server.Options{DBPath: "jarvis.db", Username: "admin", Password: "admin"})
//	if err != nil {
//		return err
//	}
//	defer srv.Close()
//	return srv.ListenAndServe(ctx)
package server
