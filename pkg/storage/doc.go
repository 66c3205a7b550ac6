// Package storage writes files atomically.
//
// Manager owns the generated image directory. WriteFileAtomic is shared by
// the cookie store and the publish journal: data goes to a temporary file in
// the destination directory and is renamed into place, so readers never see
// a partially written file.
package storage
