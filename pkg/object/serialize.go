package object

import (
	"bytes"
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Directory
// ---------------------------------------------------------------------------

// MarshalDirectory serializes a Directory as a git tree. Entries are
// already in canonical order; each is
//
//	<octal mode> SP <name> NUL <20-byte target>
func MarshalDirectory(d *Directory) []byte {
	var buf bytes.Buffer
	for _, e := range d.entries {
		buf.WriteString(strconv.FormatUint(uint64(e.Perms), 8))
		buf.WriteByte(' ')
		buf.Write(e.Name)
		buf.WriteByte(0)
		buf.Write(e.Target[:])
	}
	return buf.Bytes()
}

// UnmarshalDirectory parses a git tree manifest. Entry order is checked
// against the canonical order.
func UnmarshalDirectory(data []byte) (*Directory, error) {
	var entries []DirectoryEntry
	for len(data) > 0 {
		sp := bytes.IndexByte(data, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("unmarshal directory: %w: missing mode separator", ErrInvalidFormat)
		}
		mode, err := strconv.ParseUint(string(data[:sp]), 8, 32)
		if err != nil {
			return nil, fmt.Errorf("unmarshal directory: %w: bad mode %q", ErrInvalidFormat, data[:sp])
		}
		data = data[sp+1:]

		nul := bytes.IndexByte(data, 0)
		if nul < 0 {
			return nil, fmt.Errorf("unmarshal directory: %w: missing name terminator", ErrInvalidFormat)
		}
		name := append([]byte(nil), data[:nul]...)
		data = data[nul+1:]

		if len(data) < IDSize {
			return nil, fmt.Errorf("unmarshal directory: %w: truncated target for %q", ErrInvalidFormat, name)
		}
		var target ID
		copy(target[:], data[:IDSize])
		data = data[IDSize:]

		perms := uint32(mode)
		var entryType EntryType
		switch perms {
		case ModeFile, ModeExecutable:
			entryType = EntryFile
		case ModeDirectory:
			entryType = EntryDirectory
		case ModeSymlink:
			entryType = EntrySymlink
		default:
			return nil, fmt.Errorf("unmarshal directory: %w: unsupported mode %o for %q", ErrInvalidFormat, mode, name)
		}
		entries = append(entries, DirectoryEntry{Name: name, Type: entryType, Perms: perms, Target: target})
	}

	d, err := NewDirectory(entries)
	if err != nil {
		return nil, fmt.Errorf("unmarshal directory: %w", err)
	}
	for i, e := range d.entries {
		if !bytes.Equal(e.Name, entries[i].Name) {
			return nil, fmt.Errorf("unmarshal directory: %w: entries out of canonical order at %q", ErrInvalidFormat, entries[i].Name)
		}
	}
	return d, nil
}

// ---------------------------------------------------------------------------
// Revision
// ---------------------------------------------------------------------------

// MarshalRevision serializes a Revision as a git commit:
//
//	tree H
//	parent H        (zero or more, in order)
//	author P D      (when both author and date are set)
//	committer P D   (when both committer and committer date are set)
//	key value       (extra headers, in order)
//
//	message         (after an empty line, possibly empty)
func MarshalRevision(r *Revision) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", r.Directory)
	for _, p := range r.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	if r.Author != nil && r.Date != nil {
		writeHeader(&buf, "author", r.Author.FormatForGit(r.Date))
	}
	if r.Committer != nil && r.CommitterDate != nil {
		writeHeader(&buf, "committer", r.Committer.FormatForGit(r.CommitterDate))
	}
	for _, h := range r.ExtraHeaders {
		writeHeader(&buf, string(h.Key), h.Value)
	}
	buf.WriteByte('\n')
	buf.Write(r.Message)
	return buf.Bytes()
}

func writeHeader(buf *bytes.Buffer, key string, value []byte) {
	buf.WriteString(key)
	buf.WriteByte(' ')
	buf.Write(value)
	buf.WriteByte('\n')
}

// UnmarshalRevision parses a git commit body. Headers other than tree,
// parent, author and committer become extra headers, continuation lines
// included. When the canonical re-encoding differs from data, data is
// kept as the raw manifest so the id always equals the git commit id.
func UnmarshalRevision(data []byte) (*Revision, error) {
	headers, message, err := splitHeaders(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal revision: %w", err)
	}

	var r Revision
	sawTree := false
	for _, h := range headers {
		switch string(h.Key) {
		case "tree":
			id, err := ParseID(string(h.Value))
			if err != nil {
				return nil, fmt.Errorf("unmarshal revision: tree: %w", err)
			}
			r.Directory = id
			sawTree = true
		case "parent":
			id, err := ParseID(string(h.Value))
			if err != nil {
				return nil, fmt.Errorf("unmarshal revision: parent: %w", err)
			}
			r.Parents = append(r.Parents, id)
		case "author":
			p, date, err := parseSignature(h.Value)
			if err != nil {
				return nil, fmt.Errorf("unmarshal revision: author: %w", err)
			}
			r.Author, r.Date = &p, date
		case "committer":
			p, date, err := parseSignature(h.Value)
			if err != nil {
				return nil, fmt.Errorf("unmarshal revision: committer: %w", err)
			}
			r.Committer, r.CommitterDate = &p, date
		default:
			r.ExtraHeaders = append(r.ExtraHeaders, h)
		}
	}
	if !sawTree {
		return nil, fmt.Errorf("unmarshal revision: %w: missing tree header", ErrInvalidFormat)
	}
	r.Message = message

	rev, err := NewRevision(r)
	if err != nil {
		return nil, fmt.Errorf("unmarshal revision: %w", err)
	}
	if !bytes.Equal(rev.Manifest(), data) {
		rev = rev.WithRawManifest(data)
	}
	return rev, nil
}

// splitHeaders splits an object body into "key value" headers and the
// message after the first empty line. Lines starting with a space
// continue the previous header; the value keeps the newline and the
// space. message is nil when the body has no empty line.
func splitHeaders(data []byte) ([]Header, []byte, error) {
	var headers []Header
	rest := data
	for len(rest) > 0 {
		nl := bytes.IndexByte(rest, '\n')
		if nl < 0 {
			return nil, nil, fmt.Errorf("%w: unterminated header line %q", ErrInvalidFormat, rest)
		}
		line := rest[:nl]
		rest = rest[nl+1:]
		if len(line) == 0 {
			return headers, append([]byte{}, rest...), nil
		}
		if line[0] == ' ' {
			if len(headers) == 0 {
				return nil, nil, fmt.Errorf("%w: continuation line before any header", ErrInvalidFormat)
			}
			last := &headers[len(headers)-1]
			last.Value = append(append(last.Value, '\n'), line...)
			continue
		}
		key, value, ok := bytes.Cut(line, []byte{' '})
		if !ok || len(key) == 0 {
			return nil, nil, fmt.Errorf("%w: malformed header line %q", ErrInvalidFormat, line)
		}
		headers = append(headers, Header{Key: append([]byte(nil), key...), Value: append([]byte(nil), value...)})
	}
	return headers, nil, nil
}

// parseSignature splits "Name <email> SECONDS OFFSET" into a person and
// a date. The offset bytes are kept verbatim.
func parseSignature(value []byte) (Person, *TimestampWithTimezone, error) {
	gt := bytes.LastIndexByte(value, '>')
	if gt < 0 {
		return Person{}, nil, fmt.Errorf("%w: signature %q has no email", ErrInvalidFormat, value)
	}
	person := ParsePerson(value[:gt+1])
	fields := bytes.Fields(value[gt+1:])
	if len(fields) != 2 {
		return Person{}, nil, fmt.Errorf("%w: signature %q has no date", ErrInvalidFormat, value)
	}
	seconds, err := strconv.ParseInt(string(fields[0]), 10, 64)
	if err != nil {
		return Person{}, nil, fmt.Errorf("%w: signature timestamp %q", ErrInvalidFormat, fields[0])
	}
	ts, err := NewTimestamp(seconds, 0)
	if err != nil {
		return Person{}, nil, err
	}
	date := NewTimestampWithTimezone(ts, fields[1])
	return person, &date, nil
}

// ---------------------------------------------------------------------------
// Release
// ---------------------------------------------------------------------------

// MarshalRelease serializes a Release as a git tag:
//
//	object H        (when a target is set)
//	type T          (blob, tree, commit, tag or refs)
//	tag NAME
//	tagger P D      (when both author and date are set)
//
//	message         (after an empty line, possibly empty)
func MarshalRelease(r *Release) []byte {
	var buf bytes.Buffer
	if r.Target != nil {
		fmt.Fprintf(&buf, "object %s\n", *r.Target)
	}
	fmt.Fprintf(&buf, "type %s\n", r.TargetType.GitType())
	writeHeader(&buf, "tag", r.Name)
	if r.Author != nil && r.Date != nil {
		writeHeader(&buf, "tagger", r.Author.FormatForGit(r.Date))
	}
	buf.WriteByte('\n')
	buf.Write(r.Message)
	return buf.Bytes()
}

// UnmarshalRelease parses a git tag body. As with UnmarshalRevision, a
// non-canonical body is kept as the raw manifest.
func UnmarshalRelease(data []byte) (*Release, error) {
	headers, message, err := splitHeaders(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal release: %w", err)
	}

	var r Release
	sawType, sawTag := false, false
	for _, h := range headers {
		switch string(h.Key) {
		case "object":
			id, err := ParseID(string(h.Value))
			if err != nil {
				return nil, fmt.Errorf("unmarshal release: object: %w", err)
			}
			r.Target = &id
		case "type":
			t, err := objectTypeFromGit(GitObjectType(h.Value))
			if err != nil {
				return nil, fmt.Errorf("unmarshal release: %w", err)
			}
			r.TargetType = t
			sawType = true
		case "tag":
			r.Name = h.Value
			sawTag = true
		case "tagger":
			p, date, err := parseSignature(h.Value)
			if err != nil {
				return nil, fmt.Errorf("unmarshal release: tagger: %w", err)
			}
			r.Author, r.Date = &p, date
		default:
			// Releases carry no extra headers; the raw manifest keeps them.
		}
	}
	if !sawType || !sawTag {
		return nil, fmt.Errorf("unmarshal release: %w: missing type or tag header", ErrInvalidFormat)
	}
	r.Message = message

	rel, err := NewRelease(r)
	if err != nil {
		return nil, fmt.Errorf("unmarshal release: %w", err)
	}
	if !bytes.Equal(rel.Manifest(), data) {
		rel = rel.WithRawManifest(data)
	}
	return rel, nil
}

func objectTypeFromGit(t GitObjectType) (ObjectType, error) {
	for ot := TypeContent; ot <= TypeSnapshot; ot++ {
		if ot.GitType() == t {
			return ot, nil
		}
	}
	return 0, fmt.Errorf("%w: git type %q", ErrInvalidObjectType, t)
}

// ---------------------------------------------------------------------------
// Snapshot
// ---------------------------------------------------------------------------

// MarshalSnapshot serializes the branches sorted by raw name:
//
//	<kind> SP <name> NUL <len> ':' <payload>
//
// Dangling branches are "dangling" with "0:" and no payload; aliases
// carry the aliased name; every other kind carries its 20-byte target.
func MarshalSnapshot(s *Snapshot) []byte {
	var buf bytes.Buffer
	for _, name := range s.Names() {
		b := s.branches[string(name)]
		switch {
		case b == nil:
			buf.WriteString("dangling")
		default:
			buf.WriteString(b.Kind.String())
		}
		buf.WriteByte(' ')
		buf.Write(name)
		buf.WriteByte(0)
		switch {
		case b == nil:
			buf.WriteString("0:")
		case b.Kind == BranchAlias:
			buf.WriteString(strconv.Itoa(len(b.Target)))
			buf.WriteByte(':')
			buf.Write(b.Target)
		default:
			buf.WriteString(strconv.Itoa(IDSize))
			buf.WriteByte(':')
			buf.Write(b.Target)
		}
	}
	return buf.Bytes()
}
