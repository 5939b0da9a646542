// Package runner executes a hitgraph test graph.
//
// It provides functionality for:
//   - Dispatching runnable tests with a configurable concurrency bound
//   - Forwarding return values from parents to their children
//   - Flushing the HTTP calls a test queues and resuming it with the results
//   - Skipping the descendants of failed tests along skip-if-failed edges
//   - Per-test deadlines and panic recovery
//   - Reporting step, success, failure and skip events
//
// A single scheduler goroutine owns the pool and every state transition.
// Test bodies run on their own goroutines and only communicate with the
// scheduler through events.
package runner
