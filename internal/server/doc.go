// Package server exposes run status over HTTP.
//
// Routes:
//
//	GET  /healthz                    liveness plus scheduler state
//	GET  /metrics                    Prometheus exposition
//	GET  /calendar.ics               latest run as iCalendar
//	GET  /api/runs?limit=n           stored runs, newest first
//	POST /api/runs                   start a run unless one is in flight
//	GET  /api/runs/latest            latest run with venue reports and candidates
//	GET  /api/runs/:id               one run
//	GET  /api/runs/:id/candidates    a run's candidates, optionally ?venue=slug
package server
