//go:build cgo

package store

import (
	_ "github.com/tursodatabase/go-libsql"
)

// driverName is registered by the go-libsql driver's init under cgo
// builds, giving access to remote libsql:// URLs in addition to local
// files.
const driverName = "libsql"

// rejectRemoteDSN is a no-op under cgo builds: go-libsql handles remote
// URLs directly.
func rejectRemoteDSN(string) error { return nil }
