package object

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"unicode/utf8"
)

// Person is the author, committer or tagger of an object. Fullname is
// authoritative and is what gets serialized; Name and Email are
// best-effort parses (nil when absent).
type Person struct {
	Fullname []byte
	Name     []byte
	Email    []byte
}

// ParsePerson splits a "Name <email>" string. The last '<' and the last
// '>' delimit the email when the '<' comes first; otherwise the trimmed
// input is the name. The input is kept verbatim as Fullname.
func ParsePerson(fullname []byte) Person {
	p := Person{Fullname: append([]byte(nil), fullname...)}

	open := bytes.LastIndexByte(fullname, '<')
	closing := bytes.LastIndexByte(fullname, '>')
	if open >= 0 && closing >= 0 && open < closing {
		p.Email = append([]byte{}, fullname[open+1:closing]...)
		if name := bytes.TrimSpace(fullname[:open]); len(name) > 0 {
			p.Name = append([]byte(nil), name...)
		}
		return p
	}

	if name := bytes.TrimSpace(fullname); len(name) > 0 {
		p.Name = append([]byte(nil), name...)
	}
	return p
}

// FormatForGit returns the fullname followed, when date is non-nil, by a
// space and the date in git form.
func (p Person) FormatForGit(date *TimestampWithTimezone) []byte {
	out := append([]byte(nil), p.Fullname...)
	if date != nil {
		out = append(out, ' ')
		out = append(out, date.FormatForGit()...)
	}
	return out
}

// FullnameString returns Fullname as text; it fails on invalid UTF-8.
func (p Person) FullnameString() (string, error) {
	return utf8Text("fullname", p.Fullname)
}

// NameString returns the parsed name, "" when absent.
func (p Person) NameString() (string, error) {
	return utf8Text("name", p.Name)
}

// EmailString returns the parsed email, "" when absent.
func (p Person) EmailString() (string, error) {
	return utf8Text("email", p.Email)
}

func utf8Text(field string, b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidFormat, field)
	}
	return string(b), nil
}

// Anonymize replaces the fullname by its SHA-256 digest and drops the
// parsed parts.
func (p Person) Anonymize() Person {
	sum := sha256.Sum256(p.Fullname)
	return Person{Fullname: sum[:]}
}

// Equal compares all three fields byte for byte, distinguishing an absent
// email from an empty one.
func (p Person) Equal(other Person) bool {
	return bytes.Equal(p.Fullname, other.Fullname) &&
		optionalEqual(p.Name, other.Name) &&
		optionalEqual(p.Email, other.Email)
}

func optionalEqual(a, b []byte) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return bytes.Equal(a, b)
}

func (p Person) String() string {
	if name, err := p.NameString(); err == nil && name != "" {
		if p.Email != nil {
			if email, err := p.EmailString(); err == nil {
				return name + " <" + email + ">"
			}
		}
		return name
	}
	return string(bytes.ToValidUTF8(p.Fullname, []byte("�")))
}
