// Package utils provides utility functions for the predicato library.
//
// This package contains helper functions for various operations including:
//   - Date parsing and group-ID validation (helpers.go)
//   - Concurrent execution helpers (concurrent.go)
//   - Bulk processing utilities (bulk.go)
//   - General helper functions (helpers.go)
//
// The utilities are designed to support the core predicato operations while providing
// Go-idiomatic implementations of the Python predicato_core.helpers and predicato_core.utils modules.
package utils
