// Package api hosts the HTTP server, middleware and REST handlers. Routes:
//   - POST /scan queues a (city, keyword) scan and answers 202.
//   - GET /results and /results/summary report scored websites.
//   - POST /cleanup/invalid-contacts re-validates stored contact columns.
//   - POST /audit and GET /discover run one audit or discovery synchronously.
//   - GET /healthz, /readyz for probes and /metrics for Prometheus.
package api
