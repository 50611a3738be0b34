package watcher

// EventKind classifies a filesystem change.
type EventKind string

const (
	// KindAdded is a new file, including files found by the initial scan.
	KindAdded EventKind = "add"
	// KindModified is a write to an existing file.
	KindModified EventKind = "change"
	// KindRemoved is a file that was deleted or moved away.
	KindRemoved EventKind = "unlink"
	// KindDirAdded is a new directory, including those found by the initial scan.
	KindDirAdded EventKind = "addDir"
	// KindDirRemoved is a directory that was deleted or moved away.
	KindDirRemoved EventKind = "unlinkDir"
)

// Event is one observed change.
type Event struct {
	Kind EventKind
	Path string
}

// IsDir reports whether the event concerns a directory.
func (e Event) IsDir() bool {
	return e.Kind == KindDirAdded || e.Kind == KindDirRemoved
}
