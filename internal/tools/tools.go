//go:build tools

// Package tools pins build-time tooling in go.mod so `go mod tidy`
// doesn't drop it: golang-migrate runs against migrations/*.sql as an
// external CLI at deploy time, never imported by cmd/server, so
// without a reference like this its require entry has nothing else in
// the module graph keeping it there.
package tools

import (
	_ "github.com/golang-migrate/migrate/v4/cmd/migrate"
)
