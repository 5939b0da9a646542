// Command hitgraph-demo runs example suites against a JSONPlaceholder-style
// API:
//
//	hitgraph-demo run --base-url https://jsonplaceholder.typicode.com
package main

import (
	"github.com/abdul-hamid-achik/hitgraph/apps/cli/cmd"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cmd.Execute(version, buildTime, Build)
}
