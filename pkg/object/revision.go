package object

import "fmt"

// RevisionType names the VCS or packaging system a revision came from.
type RevisionType string

const (
	RevisionGit        RevisionType = "git"
	RevisionTar        RevisionType = "tar"
	RevisionDsc        RevisionType = "dsc"
	RevisionSubversion RevisionType = "svn"
	RevisionMercurial  RevisionType = "hg"
	RevisionCVS        RevisionType = "cvs"
	RevisionBazaar     RevisionType = "bzr"
)

// ParseRevisionType accepts the short tags above.
func ParseRevisionType(s string) (RevisionType, error) {
	switch t := RevisionType(s); t {
	case RevisionGit, RevisionTar, RevisionDsc, RevisionSubversion, RevisionMercurial, RevisionCVS, RevisionBazaar:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown revision type %q", ErrInvalidInput, s)
	}
}

// Header is one extra commit header, serialized as "key value".
type Header struct {
	Key   []byte
	Value []byte
}

// Revision is a commit. Its id is fixed at construction by NewRevision.
type Revision struct {
	// Message is nil when the revision has no message at all.
	Message       []byte
	Author        *Person
	Committer     *Person
	Date          *TimestampWithTimezone
	CommitterDate *TimestampWithTimezone
	Type          RevisionType
	Directory     ID
	Synthetic     bool
	Metadata      map[string]string
	Parents       []ID
	ExtraHeaders  []Header

	manifest    []byte
	rawManifest []byte
	id          ID
}

// NewRevision copies r, validates it and computes its id.
func NewRevision(r Revision) (*Revision, error) {
	if r.Type == "" {
		r.Type = RevisionGit
	}
	if _, err := ParseRevisionType(string(r.Type)); err != nil {
		return nil, err
	}
	for i, h := range r.ExtraHeaders {
		if len(h.Key) == 0 {
			return nil, fmt.Errorf("%w: extra header %d has an empty key", ErrInvalidInput, i)
		}
	}
	out := r
	out.Parents = append([]ID(nil), r.Parents...)
	out.ExtraHeaders = append([]Header(nil), r.ExtraHeaders...)
	out.rawManifest = nil
	out.manifest = MarshalRevision(&out)
	out.id = HashObject(GitCommit, out.manifest)
	return &out, nil
}

// WithRawManifest returns a copy whose id is computed from manifest
// instead of the canonical encoding. It is used for imported objects
// whose original bytes were not canonical.
func (r *Revision) WithRawManifest(manifest []byte) *Revision {
	out := *r
	out.rawManifest = append([]byte(nil), manifest...)
	out.manifest = out.rawManifest
	out.id = HashObject(GitCommit, out.rawManifest)
	return &out
}

// Manifest returns the bytes the id was computed from. Changing the
// exported fields afterwards does not affect it.
func (r *Revision) Manifest() []byte {
	return append([]byte(nil), r.manifest...)
}

// RawManifest returns the override manifest, nil when canonical.
func (r *Revision) RawManifest() []byte { return r.rawManifest }

// ID returns the revision id.
func (r *Revision) ID() ID { return r.id }

// SWHID returns swh:1:rev:<id>.
func (r *Revision) SWHID() SWHID { return NewSWHID(TypeRevision, r.id) }

// DirectorySWHID returns the identifier of the root directory.
func (r *Revision) DirectorySWHID() SWHID { return NewSWHID(TypeDirectory, r.Directory) }

// ParentSWHIDs returns the parent identifiers in order.
func (r *Revision) ParentSWHIDs() []SWHID {
	out := make([]SWHID, len(r.Parents))
	for i, p := range r.Parents {
		out[i] = NewSWHID(TypeRevision, p)
	}
	return out
}
