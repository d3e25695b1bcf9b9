// Package storage defines the workspace file-system abstraction used to read
// reference documents and write translation outputs.
package storage

// Provider is the interface for workspace file operations. All paths are
// relative to the provider root.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// Abs resolves path against the root, rejecting traversal.
	Abs(path string) (string, error)
	// Exists reports whether path is an existing regular file.
	Exists(path string) bool
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
}
