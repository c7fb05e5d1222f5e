// Package repository contains the MySQL data access layer. Errors
// returned by repositories are translated into the store sentinels so
// callers never inspect driver errors directly.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/event-seat-booking/internal/store"
)

// mysqlDuplicateEntry is the server error number for unique key
// violations (ER_DUP_ENTRY).
const mysqlDuplicateEntry = 1062

// translate maps driver errors to store.ErrNotFound / store.ErrDuplicate.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return store.ErrDuplicate
	}
	return err
}

// requireRow returns store.ErrNotFound when an UPDATE or DELETE
// touched no row.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
