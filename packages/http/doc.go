// Package http provides the HTTP client used by test bodies.
//
// It wraps the standard library's http package with:
//   - Configurable timeouts, redirects, proxy and TLS validation
//   - Web and API (JSON) request builders
//   - Response helpers with gjson path lookups
//   - FuturePool, which collects calls issued during a test step and
//     performs them concurrently as one batch
package http
