// Package assertions provides the assertion helpers used inside test bodies.
//
// Every call records a description on the running test. A failing assertion
// aborts the body by panicking with a *Failure, which the runner recovers and
// records as the test's failure.
//
// Supported checks:
//   - Value equality, containment, regex matching and length
//   - Status code and header checks on responses
//   - JSON path lookups (gjson syntax, bracket indexes accepted)
//   - JSON Schema validation of response bodies
package assertions
