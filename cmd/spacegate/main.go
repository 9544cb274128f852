// Package main is the entry point for spacegate.
//
//	@title			NASA Space Explorer API
//	@version		1.0
//	@description	Validating gateway in front of the NASA open APIs: picture of the day, rover photos, near earth objects and earth imaging.
//
//	@contact.name	Spacegate Support
//	@contact.url	https://github.com/artpar/spacegate/issues
//
//	@host			localhost:5000
//	@BasePath		/
package main

import (
	apihttp "github.com/artpar/spacegate/adapters/http"
)

var (
	// Set via ldflags at build time
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	apihttp.BuildVersion = version
	apihttp.BuildCommit = commit
	Execute()
}
