// Package graph models the test graph executed by hitgraph.
//
// It provides:
//   - Test, a schedulable unit wrapping one test method with its state,
//     dependency edges and forwarded arguments
//   - Suite, a group of tests sharing one lazily built instance
//   - T, the context handed to a test body while it runs
//   - Builder, the declarative registration API that validates the graph
//     (unknown dependencies, duplicates and cycles) before a run starts
package graph
