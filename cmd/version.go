// -- cmd/version.go --
package cmd

// Version is the application version, injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/crealab/webpilot/cmd.Version=1.2.3"
var Version = "0.1.0-dev"
