// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport is the HTTP adapter between jarvis and its backend.
//
// The backend exposes a small JSON API plus one raw text stream:
//
//	POST /ask              {message}            -> {response|text, timestamp}
//	POST /ask_stream       {message}            -> raw UTF-8 text, chunked
//	POST /feedback         {user_query, bot_response, rating, correction}
//	GET  /get_shortcuts                         -> {shortcuts: [{id, text}]}
//	POST /add_shortcut     {text}               -> {success, id, text}
//	POST /delete_shortcut  {id}                 -> {success}
//	POST /login            form username/password (XMLHttpRequest variant)
//
// # Failure Model
//
// Every non-2xx status, transport error or malformed payload is reported as a
// *ClientError carrying an ErrorType. Streamed requests that fail after some
// text was received return a *StreamError whose Partial field holds that text,
// so callers can keep it on screen.
//
// # Stream Decoding
//
// Chunks of the /ask_stream body may split a multi-byte character. The
// StreamDecoder carries incomplete trailing bytes into the next chunk, so
// fragments delivered to callers always contain whole characters.
//
// # Usage
//
//	client := transport.NewClient(transport.DefaultConfig())
//	reply, err := client.SendBuffered(ctx, "oi")
//	if err != nil {
//	    // show fallback text
//	}
//	fmt.Println(reply.Text, reply.Timestamp)
package transport
