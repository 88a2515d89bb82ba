package object

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSWHIDString(t *testing.T) {
	s := NewSWHID(TypeContent, ID{})
	assert.Equal(t, "swh:1:cnt:0000000000000000000000000000000000000000", s.String())
	assert.Equal(t, "swh", s.Namespace())
	assert.Equal(t, 1, s.Version())
}

func TestParseSWHIDRoundTrip(t *testing.T) {
	valid := []string{
		"swh:1:cnt:94a9ed024d3859793618152ea559a168bbcbb5e2",
		"swh:1:dir:d198bc9d7a6bcf6db04f476d29314f157507d505",
		"swh:1:rev:309cf2674ee7a0749978cf8265ab91a60aea0f7d",
		"swh:1:rel:22ece559cc7cc2364edc5e5593d63ae8bd229f9f",
		"swh:1:snp:c7c108084bc0bf3d81436bf980b46e98bd338453",
	}
	for _, text := range valid {
		s, err := ParseSWHID(text)
		require.NoError(t, err, text)
		assert.Equal(t, text, s.String())
	}
}

func TestParseSWHIDErrors(t *testing.T) {
	hex40 := strings.Repeat("a", 40)
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"too few fields", "swh:1:cnt", ErrInvalidFormat},
		{"too many fields", "swh:1:cnt:" + hex40 + ":extra", ErrInvalidFormat},
		{"single field", "invalid", ErrInvalidFormat},
		{"namespace", "foo:1:cnt:" + hex40, ErrInvalidNamespace},
		{"version 2", "swh:2:cnt:" + hex40, ErrInvalidVersion},
		{"version text", "swh:one:cnt:" + hex40, ErrInvalidVersion},
		{"version leading zero", "swh:01:cnt:" + hex40, ErrInvalidVersion},
		{"version sign", "swh:+1:cnt:" + hex40, ErrInvalidVersion},
		{"object type", "swh:1:foo:" + hex40, ErrInvalidObjectType},
		{"uppercase type", "swh:1:CNT:" + hex40, ErrInvalidObjectType},
		{"short hex", "swh:1:cnt:123", ErrInvalidHashLength},
		{"long hex", "swh:1:cnt:" + hex40 + "00", ErrInvalidHashLength},
		{"uppercase hex", "swh:1:cnt:" + strings.Repeat("A", 40), ErrInvalidHashLength},
		{"non hex", "swh:1:cnt:" + strings.Repeat("g", 40), ErrInvalidHashLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSWHID(tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSWHIDTextMarshaling(t *testing.T) {
	s := MustParseSWHID("swh:1:dir:4b825dc642cb6eb9a060e54bf8d69288fbee4904")
	data, err := json.Marshal(map[string]SWHID{"id": s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"swh:1:dir:4b825dc642cb6eb9a060e54bf8d69288fbee4904"}`, string(data))

	var decoded map[string]SWHID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, s, decoded["id"])

	var bad SWHID
	assert.Error(t, bad.UnmarshalText([]byte("swh:1:xyz:00")))
}

func TestSWHIDEqualityIsStructural(t *testing.T) {
	a := MustParseSWHID("swh:1:rev:309cf2674ee7a0749978cf8265ab91a60aea0f7d")
	b := NewSWHID(TypeRevision, a.ID)
	assert.True(t, a == b)
	assert.NotEqual(t, a, NewSWHID(TypeRelease, a.ID))
}

func TestObjectTypeTags(t *testing.T) {
	for ot := TypeContent; ot <= TypeSnapshot; ot++ {
		parsed, err := ParseObjectTag(ot.Tag())
		require.NoError(t, err)
		assert.Equal(t, ot, parsed)

		byName, err := ParseObjectName(ot.Name())
		require.NoError(t, err)
		assert.Equal(t, ot, byName)
	}
	assert.Equal(t, GitRefs, TypeSnapshot.GitType())
	assert.Equal(t, GitTag, TypeRelease.GitType())
	assert.False(t, ObjectType(0).Valid())
}
