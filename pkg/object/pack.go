package object

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"hash"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Git pack files (version 2) bundle whole objects into one stream:
//
//	"PACK" | version (BE32) | object count (BE32)
//	entries: varint type+size header, zlib-compressed payload
//	trailer: SHA-1 of everything before it
//
// Only undeltified entries are written; git index-pack accepts such packs.

const (
	packHeaderSize = 12
	packVersion    = 2
)

var packMagic = []byte("PACK")

// packType is the three-bit object type of a pack entry header.
type packType uint8

const (
	packCommit packType = 1
	packTree   packType = 2
	packBlob   packType = 3
	packTag    packType = 4
)

func packTypeOf(t GitObjectType) (packType, error) {
	switch t {
	case GitCommit:
		return packCommit, nil
	case GitTree:
		return packTree, nil
	case GitBlob:
		return packBlob, nil
	case GitTag:
		return packTag, nil
	}
	return 0, fmt.Errorf("%w: %q objects cannot be packed", ErrInvalidObjectType, t)
}

func (p packType) gitType() (GitObjectType, error) {
	switch p {
	case packCommit:
		return GitCommit, nil
	case packTree:
		return GitTree, nil
	case packBlob:
		return GitBlob, nil
	case packTag:
		return GitTag, nil
	}
	return "", fmt.Errorf("%w: pack entry type %d", ErrInvalidFormat, p)
}

// encodeEntryHeader packs the type into bits 4-6 of the first byte and the
// size as a little-endian base-128 varint starting with 4 bits.
func encodeEntryHeader(t packType, size uint64) []byte {
	b := byte(t&0x7)<<4 | byte(size&0x0f)
	size >>= 4
	out := make([]byte, 0, 10)
	for size > 0 {
		out = append(out, b|0x80)
		b = byte(size & 0x7f)
		size >>= 7
	}
	return append(out, b)
}

func decodeEntryHeader(data []byte) (packType, uint64, int, error) {
	if len(data) == 0 {
		return 0, 0, 0, fmt.Errorf("%w: pack entry header truncated", ErrInvalidFormat)
	}
	b := data[0]
	t := packType((b >> 4) & 0x7)
	size := uint64(b & 0x0f)
	shift := uint(4)
	n := 1
	for b&0x80 != 0 {
		if n >= len(data) || shift > 57 {
			return 0, 0, 0, fmt.Errorf("%w: pack entry header truncated", ErrInvalidFormat)
		}
		b = data[n]
		size |= uint64(b&0x7f) << shift
		shift += 7
		n++
	}
	return t, size, n, nil
}

// PackWriter streams objects into a git pack. The object count is fixed up
// front, as the header carries it.
type PackWriter struct {
	out      io.Writer
	sum      hash.Hash
	w        io.Writer
	expected uint32
	written  uint32
	finished bool
}

// NewPackWriter writes the pack header for count objects.
func NewPackWriter(out io.Writer, count uint32) (*PackWriter, error) {
	sum := sha1.New()
	pw := &PackWriter{out: out, sum: sum, w: io.MultiWriter(out, sum), expected: count}

	header := make([]byte, packHeaderSize)
	copy(header, packMagic)
	binary.BigEndian.PutUint32(header[4:8], packVersion)
	binary.BigEndian.PutUint32(header[8:12], count)
	if _, err := pw.w.Write(header); err != nil {
		return nil, fmt.Errorf("write pack header: %w", err)
	}
	return pw, nil
}

// WriteObject appends one object given its git type and body.
func (p *PackWriter) WriteObject(objType GitObjectType, data []byte) error {
	if p.finished {
		return fmt.Errorf("pack writer already finished")
	}
	if p.written >= p.expected {
		return fmt.Errorf("pack object count exceeded: expected %d", p.expected)
	}
	t, err := packTypeOf(objType)
	if err != nil {
		return err
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(data); err != nil {
		return fmt.Errorf("compress pack entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress pack entry: %w", err)
	}

	if _, err := p.w.Write(encodeEntryHeader(t, uint64(len(data)))); err != nil {
		return fmt.Errorf("write pack entry header: %w", err)
	}
	if _, err := p.w.Write(compressed.Bytes()); err != nil {
		return fmt.Errorf("write pack entry: %w", err)
	}
	p.written++
	return nil
}

// Finish checks the object count and writes the trailing checksum, which
// it returns.
func (p *PackWriter) Finish() (ID, error) {
	if p.finished {
		return ID{}, fmt.Errorf("pack writer already finished")
	}
	if p.written != p.expected {
		return ID{}, fmt.Errorf("pack object count mismatch: wrote %d, expected %d", p.written, p.expected)
	}
	var checksum ID
	copy(checksum[:], p.sum.Sum(nil))
	if _, err := p.out.Write(checksum[:]); err != nil {
		return ID{}, fmt.Errorf("write pack trailer: %w", err)
	}
	p.finished = true
	return checksum, nil
}

// PackEntry is one decoded, undeltified pack object.
type PackEntry struct {
	Type GitObjectType
	Data []byte
}

// ID hashes the entry as a loose object would be.
func (e PackEntry) ID() ID { return HashObject(e.Type, e.Data) }

// ReadPack decodes a complete pack, verifying its trailer. Deltified
// entries are rejected.
func ReadPack(data []byte) ([]PackEntry, error) {
	if len(data) < packHeaderSize+IDSize {
		return nil, fmt.Errorf("%w: pack too short: %d bytes", ErrInvalidFormat, len(data))
	}
	payload, trailer := data[:len(data)-IDSize], data[len(data)-IDSize:]
	if sum := sha1.Sum(payload); !bytes.Equal(sum[:], trailer) {
		return nil, fmt.Errorf("%w: pack checksum mismatch", ErrInvalidFormat)
	}
	if !bytes.Equal(payload[:4], packMagic) {
		return nil, fmt.Errorf("%w: invalid pack magic %q", ErrInvalidFormat, payload[:4])
	}
	if v := binary.BigEndian.Uint32(payload[4:8]); v != packVersion {
		return nil, fmt.Errorf("%w: unsupported pack version %d", ErrInvalidFormat, v)
	}
	count := binary.BigEndian.Uint32(payload[8:12])

	offset := packHeaderSize
	entries := make([]PackEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		pt, size, n, err := decodeEntryHeader(payload[offset:])
		if err != nil {
			return nil, fmt.Errorf("pack entry %d: %w", i, err)
		}
		objType, err := pt.gitType()
		if err != nil {
			return nil, fmt.Errorf("pack entry %d: %w", i, err)
		}
		offset += n

		sub := bytes.NewReader(payload[offset:])
		zr, err := zlib.NewReader(sub)
		if err != nil {
			return nil, fmt.Errorf("pack entry %d: %w: %v", i, ErrInvalidFormat, err)
		}
		raw, err := io.ReadAll(zr)
		zr.Close()
		if err != nil {
			return nil, fmt.Errorf("pack entry %d: %w: %v", i, ErrInvalidFormat, err)
		}
		if uint64(len(raw)) != size {
			return nil, fmt.Errorf("pack entry %d: %w: size %d, header says %d", i, ErrInvalidFormat, len(raw), size)
		}
		offset += len(payload[offset:]) - sub.Len()
		entries = append(entries, PackEntry{Type: objType, Data: raw})
	}
	if offset != len(payload) {
		return nil, fmt.Errorf("%w: %d trailing bytes after last pack entry", ErrInvalidFormat, len(payload)-offset)
	}
	return entries, nil
}
