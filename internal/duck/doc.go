// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package duck implements the streaming protocol session against
// DuckDuckGo's duckchat backend.
//
// A conversational turn is one POST to the chat endpoint authorized by a
// short-lived continuation token (the x-vqd-4 header). The response body is
// a stream of double-newline delimited frames; each frame carries a "data: "
// payload that is either a JSON event with an optional text fragment or the
// [DONE] terminal sentinel. The backend issues a fresh token with every
// response, so the token must be rotated after each completed turn.
package duck
