// Package lock ensures a single gitwatcher process per watched directory.
package lock
