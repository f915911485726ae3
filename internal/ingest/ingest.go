package ingest

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
	Failed  uint32
}

// ScanError is a path the walk could not read.
type ScanError struct {
	Path string
	Err  string
}
