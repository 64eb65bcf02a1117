// Package api hosts the ops HTTP server for the scheduled crawler.
// Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/runs/last for the most recent run summary.
//   - POST /v1/runs to start a crawl outside the schedule.
package api
