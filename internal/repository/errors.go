// Package repository contains the data access layer: thin structs over
// *sql.DB issuing hand-written SQL.  Sentinel errors defined next to each
// repository let handlers map failure cases to HTTP statuses without
// inspecting driver errors themselves.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry is the MySQL error number raised when an INSERT or
// UPDATE violates a unique key.
const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a unique-constraint violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
