// Package digest provides streaming content-addressing and payload
// compression helpers shared by both package-manager families.
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
)

// Checksums holds the digests of a file computed in a single streaming
// pass, as requires (never loaded into memory for dedup).
type Checksums struct {
	MD5 string
	SHA1 string
	SHA256 string
	Size int64
}

// FileChecksums streams path through md5/sha1/sha256 simultaneously.
func FileChecksums(path string) (*Checksums, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	md5h := md5.New()
	sha1h := sha1.New()
	sha256h := sha256.New()

	if _, err := io.Copy(io.MultiWriter(md5h, sha1h, sha256h), f); err != nil {
		return nil, err
	}

	return &Checksums{
		MD5: hex.EncodeToString(md5h.Sum(nil)),
		SHA1: hex.EncodeToString(sha1h.Sum(nil)),
		SHA256: hex.EncodeToString(sha256h.Sum(nil)),
		Size: info.Size(),
	}, nil
}

// SHA256Bytes renders the lowercase hex sha256 digest of data.
func SHA256Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// SHA256Reader streams r through sha256 without buffering it entirely,
// for package files whose size is unbounded.
func SHA256Reader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Sum computes a single named digest (md5, sha1, or sha256) over data.
func Sum(data []byte, algo string) string {
	var h hash.Hash
	switch algo {
	case "md5":
		h = md5.New()
	case "sha1":
		h = sha1.New()
	default:
		h = sha256.New()
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentAddressedName prefixes base with the hex sha256 of data, so
// re-uploading identical content under the same base keeps the same name.
func ContentAddressedName(data []byte, base string) string {
	return SHA256Bytes(data) + "-" + base
}
