package dupes

import "io"

// Archive provides an interface for duplicate archival backends.
// Before a duplicate is deleted, its content can be copied into an archive,
// addressed by its digest, so an accidental deletion remains recoverable.
// All operations stream through io.Reader/io.Writer to support large files.
type Archive interface {
	// Put stores content identified by its digest. The operation is
	// idempotent: storing the same digest multiple times is safe.
	// size is the number of bytes that will be read from r.
	Put(hash string, r io.Reader, size int64) error

	// Has reports whether content with the given digest is archived.
	Has(hash string) (bool, error)

	// Get retrieves archived content by digest and writes it to w.
	Get(hash string, w io.Writer) error

	// ValidateSetup verifies that the archive is accessible and properly
	// configured.
	ValidateSetup() error
}
