package signer

// Signer is the GPG signing seam the RPM and Debian engines call after
// a successful commit. Key management and invocation are out of scope;
// this is just the interface a caller opts into.
type Signer interface {
	// SignCleartext creates a cleartext signature (for Debian InRelease)
	SignCleartext(data []byte) ([]byte, error)

	// SignDetached creates a detached ASCII-armored signature (for Debian Release.gpg, RPM repomd.xml.asc)
	SignDetached(data []byte) ([]byte, error)

	// SignDetachedBinary creates a detached binary signature
	SignDetachedBinary(data []byte) ([]byte, error)

	// SignDetachedBinaryFromFile creates a detached binary signature directly from a file
	SignDetachedBinaryFromFile(filePath string) ([]byte, error)

	// GetPublicKey returns the public key
	GetPublicKey() ([]byte, error)
}
