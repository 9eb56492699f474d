// Package services implements the business logic layer between the HTTP
// handlers and the analysis engine. It owns the dataset lifecycle: uploads
// are validated, parsed, classified and kept in an in-memory store keyed by
// generated identifiers, and every read operation the API offers resolves
// against that store.
//
// # Responsibilities
//
// The service layer is responsible for:
//
//	- Upload validation and size limits
//	- Content fingerprinting and the parse cache
//	- Running the classification engine and storing its output
//	- Translating engine and loader errors into the shared sentinels
//	- Progress pushes over the websocket hub
//	- Recording analysis metrics
//
// # Common Service Pattern
//
// Services take their configuration and an injected *slog.Logger:
//
//	svc, err := services.NewAnalysisServiceWithLogger(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	svc.SetBroadcaster(hub)
//	svc.SetMetrics(metrics)
//
// All operations accept a context.Context and return explicit errors that
// the transport layer maps to RFC 7807 problem documents.
package services
