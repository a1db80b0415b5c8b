// Package tracker applies edits to KSI items. Every committed edit is diffed against the
// previous item snapshot, the resulting audit entries are prepended to the audit log, and
// the compliance tree and log are persisted together.
package tracker
