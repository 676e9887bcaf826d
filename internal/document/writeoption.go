package document

// WriteOption is a named serialization behavior applied on save.
type WriteOption int

const (
	CompressStreams WriteOption = iota
	ObjectStreams
	XRefStream
	SyncBodyWrite
)

func (o WriteOption) String() string {
	switch o {
	case CompressStreams:
		return "compress-streams"
	case ObjectStreams:
		return "object-streams"
	case XRefStream:
		return "xref-stream"
	case SyncBodyWrite:
		return "sync-body-write"
	}
	return "unknown"
}

// compressedOpts is the fixed bundle toggled by SetCompress. The four
// options interact during serialization and are only ever valid together;
// partial combinations produce an internally inconsistent file.
var compressedOpts = []WriteOption{CompressStreams, ObjectStreams, XRefStream, SyncBodyWrite}
