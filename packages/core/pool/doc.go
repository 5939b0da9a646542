// Package pool partitions the tests of a graph into queued, running and
// completed sets and decides, whenever a test finishes, which of its
// children become runnable and which are skipped.
//
// A Pool is not safe for concurrent use. It is owned by the scheduler loop.
package pool
