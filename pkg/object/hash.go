package object

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"sort"
	"strconv"

	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2s"
)

// envelopeHeader returns "type len\0".
func envelopeHeader(objType GitObjectType, n int) []byte {
	header := make([]byte, 0, len(objType)+24)
	header = append(header, objType...)
	header = append(header, ' ')
	header = strconv.AppendInt(header, int64(n), 10)
	return append(header, 0)
}

// Envelope returns the full git object bytes "type len\0data".
func Envelope(objType GitObjectType, data []byte) []byte {
	out := envelopeHeader(objType, len(data))
	return append(out, data...)
}

// HashObject computes the SHA-1 of the envelope "type len\0data". Every
// object kind is identified this way; only the type tag differs.
func HashObject(objType GitObjectType, data []byte) ID {
	h := sha1.New()
	h.Write(envelopeHeader(objType, len(data)))
	h.Write(data)
	var id ID
	copy(id[:], h.Sum(nil))
	return id
}

// HashContent computes the content identifier of data: the blob envelope
// hash, identical to git's blob id.
func HashContent(data []byte) ID {
	return HashObject(GitBlob, data)
}

// Checksum algorithm names understood by MultiHash.
const (
	AlgoSHA1       = "sha1"
	AlgoSHA1Git    = "sha1_git"
	AlgoSHA256     = "sha256"
	AlgoBlake2s256 = "blake2s256"
	AlgoBlake3     = "blake3"
)

// DefaultAlgorithms are the checksums every content carries.
var DefaultAlgorithms = []string{AlgoSHA1, AlgoSHA1Git, AlgoSHA256, AlgoBlake2s256}

// Hashes maps an algorithm name to a raw digest.
type Hashes map[string][]byte

// Hex returns the hex form of the named digest, or "" when absent.
func (h Hashes) Hex(algo string) string {
	d, ok := h[algo]
	if !ok {
		return ""
	}
	return hex.EncodeToString(d)
}

// HexMap returns every digest hex encoded.
func (h Hashes) HexMap() map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = hex.EncodeToString(v)
	}
	return out
}

// MultiHash computes several checksums over a stream in one pass. The
// sha1_git digest needs the payload length up front, so the caller
// supplies it.
type MultiHash struct {
	length  int64
	written int64
	hashers map[string]hash.Hash
}

// NewMultiHash prepares hashers for algos. sha1_git is always included
// because it is the content identifier.
func NewMultiHash(length int64, algos ...string) (*MultiHash, error) {
	if length < 0 {
		return nil, fmt.Errorf("%w: negative content length %d", ErrInvalidInput, length)
	}
	m := &MultiHash{length: length, hashers: make(map[string]hash.Hash, len(algos)+1)}
	gitHasher := sha1.New()
	gitHasher.Write(envelopeHeader(GitBlob, int(length)))
	m.hashers[AlgoSHA1Git] = gitHasher
	for _, algo := range algos {
		if _, ok := m.hashers[algo]; ok {
			continue
		}
		h, err := newHasher(algo)
		if err != nil {
			return nil, err
		}
		m.hashers[algo] = h
	}
	return m, nil
}

func newHasher(algo string) (hash.Hash, error) {
	switch algo {
	case AlgoSHA1:
		return sha1.New(), nil
	case AlgoSHA256:
		return sha256.New(), nil
	case AlgoBlake2s256:
		return blake2s.New256(nil)
	case AlgoBlake3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("%w: unknown checksum algorithm %q", ErrInvalidInput, algo)
	}
}

// Write feeds p to every hasher.
func (m *MultiHash) Write(p []byte) (int, error) {
	for _, h := range m.hashers {
		h.Write(p)
	}
	m.written += int64(len(p))
	return len(p), nil
}

// ReadFrom consumes r until EOF.
func (m *MultiHash) ReadFrom(r io.Reader) (int64, error) {
	return io.Copy(writerOnly{m}, r)
}

// writerOnly hides ReadFrom so io.Copy does not recurse.
type writerOnly struct{ io.Writer }

// Sum returns the digests. It fails when the number of bytes written
// differs from the length declared to NewMultiHash.
func (m *MultiHash) Sum() (Hashes, error) {
	if m.written != m.length {
		return nil, fmt.Errorf("%w: read %d bytes, expected %d", ErrInvalidInput, m.written, m.length)
	}
	out := make(Hashes, len(m.hashers))
	for algo, h := range m.hashers {
		out[algo] = h.Sum(nil)
	}
	return out, nil
}

// Algorithms returns the sorted algorithm names m computes.
func (m *MultiHash) Algorithms() []string {
	names := make([]string, 0, len(m.hashers))
	for k := range m.hashers {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// HashBytes computes every requested checksum over data.
func HashBytes(data []byte, algos ...string) (Hashes, error) {
	m, err := NewMultiHash(int64(len(data)), algos...)
	if err != nil {
		return nil, err
	}
	m.Write(data)
	return m.Sum()
}
