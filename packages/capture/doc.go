// Package capture scopes the output of test steps and extracts values from
// HTTP responses.
//
// A Step is begun before a test step runs and ended when it settles; the text
// written in between belongs to that step only, so concurrently running tests
// never see each other's output.
//
// Extracted values (JSON paths, headers, status, duration) are typically
// returned by a test body so they are forwarded to dependent tests.
package capture
