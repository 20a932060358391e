//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// These tools are installed globally via `go install` or run through `go run`
// and are not tracked in go.mod since they are development tools, not runtime dependencies.
package tools

// Development tools:
//
// mockgen - regenerates internal/mocks from the core ports
//   Run:     go generate ./internal/mocks
//   Version: go.uber.org/mock v0.6.0 (matches the go.mod require)
//   Docs:    https://github.com/uber-go/mock
//
// Air - Live reload for the consultd binary during development
//   Install: go install github.com/air-verse/air@v1.63.0
//   Run:     air --build.cmd "go build -o ./tmp/consultd ./cmd/consultd" --build.bin ./tmp/consultd
//   Docs:    https://github.com/air-verse/air
