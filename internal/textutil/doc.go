// Package textutil provides text normalization helpers for filenames and
// digest previews.
//
// Sanitized names are pure functions of their input: the same title always
// produces the same filename, which is what keeps note exports idempotent.
package textutil
