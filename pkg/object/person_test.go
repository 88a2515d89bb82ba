package object

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePerson(t *testing.T) {
	tests := []struct {
		input string
		name  []byte
		email []byte
	}{
		{"John Doe <john@example.com>", []byte("John Doe"), []byte("john@example.com")},
		{"John Doe", []byte("John Doe"), nil},
		{"  spaced  ", []byte("spaced"), nil},
		{"<only@mail>", nil, []byte("only@mail")},
		{"Name <>", []byte("Name"), []byte{}},
		{"a <b> c <d@e>", []byte("a <b> c"), []byte("d@e")},
		{"reversed > order <", []byte("reversed > order <"), nil},
		{"", nil, nil},
	}
	for _, tt := range tests {
		p := ParsePerson([]byte(tt.input))
		assert.Equal(t, tt.input, string(p.Fullname), "fullname of %q", tt.input)
		assert.Equal(t, tt.name, p.Name, "name of %q", tt.input)
		assert.Equal(t, tt.email, p.Email, "email of %q", tt.input)
	}
}

func TestPersonFormatForGit(t *testing.T) {
	p := ParsePerson([]byte("John Doe <john@example.com>"))
	assert.Equal(t, "John Doe <john@example.com>", string(p.FormatForGit(nil)))

	ts, err := NewTimestamp(1234567890, 0)
	require.NoError(t, err)
	date := NewTimestampWithTimezone(ts, []byte("+0200"))
	assert.Equal(t, "John Doe <john@example.com> 1234567890 +0200", string(p.FormatForGit(&date)))
}

func TestPersonStrings(t *testing.T) {
	p := ParsePerson([]byte("John Doe <john@example.com>"))
	name, err := p.NameString()
	require.NoError(t, err)
	assert.Equal(t, "John Doe", name)
	email, err := p.EmailString()
	require.NoError(t, err)
	assert.Equal(t, "john@example.com", email)
	assert.Equal(t, "John Doe <john@example.com>", p.String())

	bad := ParsePerson([]byte("caf\xe9 <x@y>"))
	_, err = bad.NameString()
	assert.ErrorIs(t, err, ErrInvalidFormat)
	_, err = bad.FullnameString()
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestPersonAnonymize(t *testing.T) {
	p := ParsePerson([]byte("John Doe <john@example.com>"))
	anon := p.Anonymize()
	sum := sha256.Sum256([]byte("John Doe <john@example.com>"))
	assert.Equal(t, sum[:], anon.Fullname)
	assert.Nil(t, anon.Name)
	assert.Nil(t, anon.Email)
}

func TestPersonEqual(t *testing.T) {
	a := ParsePerson([]byte("A <a@x>"))
	b := ParsePerson([]byte("A <a@x>"))
	assert.True(t, a.Equal(b))
	assert.False(t, ParsePerson([]byte("A")).Equal(ParsePerson([]byte("A <>"))))
}
