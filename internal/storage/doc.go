// Package storage owns the SQLite database shared by the catalog, split,
// and invitation stores.
//
// It opens the database with WAL and foreign keys enabled, applies the
// embedded schema, verifies the schema version, and exposes busy-retry and
// transaction helpers plus the date/time encoding conventions used across
// every table. Schema changes bump schemaVersion in schema.go; operators
// recreate the database to adopt the new schema.
package storage
