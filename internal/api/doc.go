// Package api hosts the HTTP server, middleware, and handlers. Notable routes:
//   - GET / , /style.css and /main.js for the upload page.
//   - POST /upload to crush an image; the body is the raw file.
//   - GET /images/{name} to fetch a crushed image by token.
//   - GET /healthz / readyz for liveness and readiness checks.
//   - GET /metrics for Prometheus scraping.
package api
