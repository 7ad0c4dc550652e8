//go:build !cgo

package store

import (
	"database/sql"
	"strings"

	sqlite "modernc.org/sqlite"
)

// driverName is registered under the same name the cgo build uses so
// the rest of the package never branches on build tags. Pure-Go builds
// lose remote libsql:// connectivity (modernc.org/sqlite only speaks to
// local files and :memory:) but keep every local-file code path working
// without a C toolchain.
const driverName = "libsql"

func init() {
	sql.Register(driverName, &sqlite.Driver{})
}

// rejectRemoteDSN fails fast for libsql:// URLs under a pure-Go build,
// which cannot speak the Turso remote protocol.
func rejectRemoteDSN(dsn string) error {
	if strings.HasPrefix(dsn, "libsql://") || strings.HasPrefix(dsn, "https://") {
		return errRemoteRequiresCgo
	}
	return nil
}
