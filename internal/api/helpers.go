// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

package api

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/athletetime/relay/internal/logging"
)

// sanitizeLogValue strips CR/LF from attacker-controlled strings before
// they reach the log stream.
func sanitizeLogValue(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\r", "")
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// respondJSON writes v as a JSON response with a weak ETag so clients
// polling /api/stats can short-circuit unchanged payloads.
func respondJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal response")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	hash := fnv.New64a()
	hash.Write(body)
	w.Header().Set("ETag", fmt.Sprintf(`W/"%x"`, hash.Sum64()))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logging.Error().Err(err).Msg("failed to write response")
	}
}
