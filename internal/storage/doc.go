// Package storage provides the key-value persistence used for the compliance
// tree and the audit log.
//
// Store is a minimal get/set contract over named byte values. Backends cover a
// local SQLite database, a directory of JSON files, Redis, and an in-process map
// used by tests. LoadJSON and SaveJSON layer JSON encoding on top of any Store.
package storage
