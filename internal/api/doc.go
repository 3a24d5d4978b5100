// Package api hosts the HTTP server, middleware, and REST handlers for the
// actor catalogue. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - GET|POST /api/actors and GET|PUT|DELETE /api/actors/{id}, behind
//     bearer-token authentication.
//   - GET /docs and /openapi.yaml outside production.
//
// Every error leaves the server as {"error": "...", "statusCode": n}.
package api
