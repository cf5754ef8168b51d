package domain

import "errors"

// Error kinds. Failures wrap one of these together with the underlying cause,
// so callers classify with errors.Is and still see what went wrong.
var (
	// ErrArchive means the bundle is missing, corrupt, or could not be extracted.
	ErrArchive = errors.New("archive error")
	// ErrEncoding means source bytes are undecodable under the expected encoding.
	ErrEncoding = errors.New("encoding error")
	// ErrDataSource means a source file is missing, malformed, empty, or lacks a required column.
	ErrDataSource = errors.New("data source error")
	// ErrIndexBuild means embedding or index persistence failed during a rebuild.
	ErrIndexBuild = errors.New("index build error")
	// ErrUnrecognizedQuery means the semantic fallback could not interpret the query.
	ErrUnrecognizedQuery = errors.New("command not recognized")
	// ErrNoIndex means no knowledge base has been built at the index location.
	ErrNoIndex = errors.New("no index")
)
