// Package media turns terminal frames into files: a PNG renderer with
// built-in and custom themes, GIF, MP4 and PNG encoders over sequences of
// rendered frames, and a directory sink with atomic writes.
//
// The types here satisfy the narrow interfaces the recording package
// consumes; nothing in media knows about scripts or sessions.
package media
