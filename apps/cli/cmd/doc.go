// Package cmd implements the hitgraph CLI commands using Cobra.
//
// The tests themselves are Go code; a test binary registers its suites on a
// graph.Builder and hands the build function to Execute.
//
// Available commands:
//   - run: Execute the registered tests
//   - validate: Build the graph and load the configuration without running
//   - list: Display the registered tests and their dependencies
//   - history: Show recorded runs from a history database
//   - init: Write a starter configuration file
//   - version: Show hitgraph version information
package cmd
