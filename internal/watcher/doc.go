// Package watcher implements the Change Observer: a recursive filesystem
// watcher built on fsnotify.
//
// An Observer reports five kinds of events for paths below its root:
// add, change, unlink, addDir and unlinkDir. Entries that already exist
// when watching starts are reported as add/addDir by an initial scan,
// after which Ready is closed.
//
// Error handling follows two rules. Problems with the root itself (missing,
// unreadable, not a directory) are returned from Start and are fatal.
// Problems with individual entries found later, such as a subdirectory
// without read permission, are logged and skipped while the rest of the
// tree stays watched.
package watcher
