// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

/*
Package services provides suture.Service wrappers for Relay components.

Each wrapper adapts an existing component lifecycle to suture's
context-aware Serve pattern:

HubService wraps the chat hub's RunWithContext loop, which already
follows the Serve pattern and only needs a name for supervisor logs.

HTTPServerService wraps *http.Server, starting ListenAndServe in a
goroutine and draining connections through Shutdown when the context
is canceled.

SweeperService runs a maintenance callback on a fixed interval. Relay
supervises two: one disconnecting peers with stale heartbeats, one
pruning messages past the retention window.
*/
package services
