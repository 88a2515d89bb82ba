package object

import (
	"fmt"
	"io"
	"os"
)

// ContentStatus tells whether a content's bytes were kept.
type ContentStatus string

const (
	StatusVisible ContentStatus = "visible"
	// StatusAbsent marks a content whose bytes were skipped (too large);
	// its hashes are still known.
	StatusAbsent ContentStatus = "absent"
)

// ReasonTooLarge is the Reason of contents over the length ceiling.
const ReasonTooLarge = "Content too large"

// Content is a file payload and its checksums. It is immutable once
// built.
type Content struct {
	data   []byte
	length int64
	status ContentStatus
	reason string
	hashes Hashes
}

// NewContent hashes data with the default algorithms plus extra.
func NewContent(data []byte, extra ...string) (*Content, error) {
	algos := append(append([]string(nil), DefaultAlgorithms...), extra...)
	hashes, err := HashBytes(data, algos...)
	if err != nil {
		return nil, err
	}
	return &Content{
		data:   append([]byte(nil), data...),
		length: int64(len(data)),
		status: StatusVisible,
		hashes: hashes,
	}, nil
}

// ContentFromReader hashes length bytes from r. When maxLength is
// positive and length exceeds it, the bytes are streamed through the
// hashers but not retained and the content is marked absent.
func ContentFromReader(r io.Reader, length, maxLength int64, extra ...string) (*Content, error) {
	algos := append(append([]string(nil), DefaultAlgorithms...), extra...)
	m, err := NewMultiHash(length, algos...)
	if err != nil {
		return nil, err
	}
	c := &Content{length: length, status: StatusVisible}

	if maxLength > 0 && length > maxLength {
		if _, err := m.ReadFrom(io.LimitReader(r, length+1)); err != nil {
			return nil, fmt.Errorf("hash content: %w", err)
		}
		c.status = StatusAbsent
		c.reason = ReasonTooLarge
	} else {
		data, err := io.ReadAll(io.LimitReader(r, length+1))
		if err != nil {
			return nil, fmt.Errorf("read content: %w", err)
		}
		m.Write(data)
		c.data = data
	}

	hashes, err := m.Sum()
	if err != nil {
		return nil, fmt.Errorf("hash content: %w", err)
	}
	c.hashes = hashes
	return c, nil
}

// ContentFromFile hashes the file at path, honoring maxLength as in
// ContentFromReader.
func ContentFromFile(path string, maxLength int64, extra ...string) (*Content, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open content %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat content %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrInvalidInput, path)
	}
	c, err := ContentFromReader(f, info.Size(), maxLength, extra...)
	if err != nil {
		return nil, fmt.Errorf("content %s: %w", path, err)
	}
	return c, nil
}

// ID returns the sha1_git identifier.
func (c *Content) ID() ID {
	var id ID
	copy(id[:], c.hashes[AlgoSHA1Git])
	return id
}

// SWHID returns swh:1:cnt:<id>.
func (c *Content) SWHID() SWHID {
	return NewSWHID(TypeContent, c.ID())
}

// Data returns the payload, or nil for an absent content.
func (c *Content) Data() []byte { return c.data }

// Length returns the payload length in bytes.
func (c *Content) Length() int64 { return c.length }

// Status returns visible or absent.
func (c *Content) Status() ContentStatus { return c.status }

// Reason explains an absent status.
func (c *Content) Reason() string { return c.reason }

// Hashes returns a copy of the checksum map.
func (c *Content) Hashes() Hashes {
	out := make(Hashes, len(c.hashes))
	for k, v := range c.hashes {
		out[k] = append([]byte(nil), v...)
	}
	return out
}
