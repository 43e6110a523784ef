// cmd/nidsbench/main.go
package main

import (
	nidsbench "github.com/mwiater/nidsbench/internal/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	setVersionInfo = nidsbench.SetVersionInfo
	executeCmd     = nidsbench.Execute
)

// main injects build information and hands control to the cobra root command.
func main() {
	setVersionInfo(version, commit, date)
	executeCmd()
}
