// Package main hosts the bitcrush service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server serves the upload page (/, /style.css, /main.js), accepts raw image bodies on
//     POST /upload, and serves crushed images from GET /images/{id}.jpg. Health, readiness and Prometheus metrics sit
//     beside them.
//   - Service: internal/service.Service sniffs the upload, hands it to the transform pool, waits with the request
//     context, mints a UUIDv7 id and inserts the JPEG into the in-memory artifact store before answering.
//   - Transform pool: tasks flow through a bounded in-memory queue sized by transform.queue_depth and are fanned out to
//     a fixed worker pool sized by transform.workers. Each worker runs decode, two randomized crush passes (resize,
//     rotate 180, hue rotate 180, low-quality JPEG round trip, resize back) and the final encode.
//   - Fan-out: once stored, an artifact is optionally recorded in the Postgres submission ledger, exported to the
//     archive backend (memory/local/GCS) and announced via Pub/Sub (or an in-memory publisher). None of these are read
//     back; a restart starts with an empty store.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging; Prometheus
//     metrics are exported via the metrics middleware and /metrics handler; OpenTelemetry spans cover requests and
//     submissions.
//
// Operational notes:
//   - A full queue makes uploads wait until their request deadline (server.request_timeout_seconds) and then answer
//     503. A client that disconnects does not cancel the running transform; its result is dropped.
//   - Cloud Run: the HTTP server listens on the configured port (overridable via PORT) and shuts down cleanly on
//     SIGTERM.
//
// Quick checklist:
//   - Configure env vars: BITCRUSH_SERVER_PORT or PORT, BITCRUSH_TRANSFORM_WORKERS, BITCRUSH_ARCHIVE_BACKEND, pubsub,
//     and BITCRUSH_DATABASE_DSN when a ledger is wanted.
//   - Run locally: go run ./cmd/bitcrush serve --config config.yaml (or rely solely on env overrides).
//   - Crush one file without a server: go run ./cmd/bitcrush crush photo.png -o crushed.jpg
package main
