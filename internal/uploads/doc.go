// Package uploads turns local files into evidence documents. A batch of files is read
// concurrently and either every file becomes a document or the whole batch fails.
package uploads
