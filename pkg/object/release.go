package object

import "fmt"

// Release is an annotated tag. Its id is fixed at construction by
// NewRelease.
type Release struct {
	Name []byte
	// Message is nil when the release has no message at all.
	Message    []byte
	Target     *ID
	TargetType ObjectType
	Synthetic  bool
	Author     *Person
	Date       *TimestampWithTimezone
	Metadata   map[string]string

	manifest    []byte
	rawManifest []byte
	id          ID
}

// NewRelease copies r, validates it and computes its id.
func NewRelease(r Release) (*Release, error) {
	if !r.TargetType.Valid() {
		return nil, fmt.Errorf("%w: release %q has invalid target type %v", ErrInvalidInput, r.Name, r.TargetType)
	}
	out := r
	if r.Target != nil {
		target := *r.Target
		out.Target = &target
	}
	out.rawManifest = nil
	out.manifest = MarshalRelease(&out)
	out.id = HashObject(GitTag, out.manifest)
	return &out, nil
}

// WithRawManifest returns a copy whose id is computed from manifest.
func (r *Release) WithRawManifest(manifest []byte) *Release {
	out := *r
	out.rawManifest = append([]byte(nil), manifest...)
	out.manifest = out.rawManifest
	out.id = HashObject(GitTag, out.rawManifest)
	return &out
}

// Manifest returns the bytes the id was computed from. Changing the
// exported fields afterwards does not affect it.
func (r *Release) Manifest() []byte {
	return append([]byte(nil), r.manifest...)
}

// RawManifest returns the override manifest, nil when canonical.
func (r *Release) RawManifest() []byte { return r.rawManifest }

// ID returns the release id.
func (r *Release) ID() ID { return r.id }

// SWHID returns swh:1:rel:<id>.
func (r *Release) SWHID() SWHID { return NewSWHID(TypeRelease, r.id) }

// TargetSWHID returns the target identifier; ok is false without a
// target.
func (r *Release) TargetSWHID() (SWHID, bool) {
	if r.Target == nil {
		return SWHID{}, false
	}
	return NewSWHID(r.TargetType, *r.Target), true
}
