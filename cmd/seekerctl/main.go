// Command seekerctl is the operator CLI over the index, webgraph and
// frontier packages: open/commit/merge/optimize an index, build/merge/query
// a webgraph, and initialize/sample a crawl frontier.
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:]))
}
