package model

import "database/sql"

// toNullInt64 wraps an int64 in a valid sql.NullInt64 for tests.
func toNullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}
