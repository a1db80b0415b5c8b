// Package audit derives, stores, and exports the change history of KSI items.
//
// Deriver compares two snapshots of one item and emits the semantic events that
// describe the change. The log is kept newest first; Prepend, Filter, and WriteCSV
// operate on it without mutation. LogRepository persists the log through a storage.Store,
// and CommandBuilder exposes the list, export, and clear commands.
package audit
