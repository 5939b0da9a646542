// Package output provides reporters for displaying test results.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output, written live
//   - JSON: Machine-readable JSON output
//   - JUnit: JUnit XML format for CI integration
//   - TAP: Test Anything Protocol format
//
// Every reporter implements runner.Reporter. Console writes as events
// arrive; the other formats write once the run has finished.
package output
