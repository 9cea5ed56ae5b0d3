// Relay - Real-Time Room & Presence Engine
// Copyright 2026 Athlete Time contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/athletetime/relay

/*
Package supervisor provides process supervision for Relay using suture v4.

The tree organizes the long-running services into two layers for
failure isolation:

	RootSupervisor ("relay")
	├── MessagingSupervisor ("messaging-layer")
	│   ├── HubService
	│   ├── SweeperService ("heartbeat-sweeper")
	│   └── SweeperService ("retention-sweeper")
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services restart automatically with exponential backoff; a
crash in the messaging layer does not take the HTTP endpoints down
with it. Supervision events are logged through slog via the
sutureslog adapter, which feeds the zerolog facade in
internal/logging.

Basic setup in main:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}

	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	if err := tree.Serve(ctx); err != nil {
	    return err
	}

Services implement suture.Service. Returning nil stops a service for
good; returning an error schedules a restart; on context cancellation
a service should return promptly with ctx.Err(). Services that fail
to stop within the shutdown timeout show up in
UnstoppedServiceReport.
*/
package supervisor
