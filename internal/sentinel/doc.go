// Package sentinel provides a const-declarable error type.
//
// Errors created with errors.New live in package variables that any importer
// can overwrite. Error is a plain string type, so redisenv sentinels such as
// ErrNotFound or ErrStartupTimeout are declared as constants and still match
// through wrapped chains with errors.Is.
package sentinel
