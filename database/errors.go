package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode      = "23505"
	serializationFailureCode = "40001"
	deadlockDetectedCode     = "40P01"
	checkViolationCode       = "23514"
)

// IsUniqueViolation reports whether err is a postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	return pgErrCode(err) == uniqueViolationCode
}

// IsSerializationFailure reports whether err is a transient serialization or
// deadlock failure that is safe to retry.
func IsSerializationFailure(err error) bool {
	code := pgErrCode(err)
	return code == serializationFailureCode || code == deadlockDetectedCode
}

// IsCheckViolation reports whether err is a check constraint violation.
func IsCheckViolation(err error) bool {
	return pgErrCode(err) == checkViolationCode
}

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
