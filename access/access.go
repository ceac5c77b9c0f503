package access

import (
	"context"

	"github.com/c360/datamall/storeid"
)

// Level orders stream permission levels from weakest to strongest.
type Level int

const (
	LevelNone Level = iota
	LevelRead
	LevelContribute
	LevelManage
)

// ParseLevel maps the external level names. Unknown names yield LevelNone.
func ParseLevel(s string) Level {
	switch s {
	case "read":
		return LevelRead
	case "contribute":
		return LevelContribute
	case "manage":
		return LevelManage
	default:
		return LevelNone
	}
}

// Permission grants a level on a stream subtree. The stream id is
// namespace-qualified; the root marker grants on everything.
type Permission struct {
	StreamID string
	Level    Level
}

// Access is one resolved credential.
type Access struct {
	ID string

	// Personal accesses bypass permission checks entirely.
	Personal bool

	Permissions []Permission
}

// levelOn returns the strongest level granted on the given stream id.
// Subtree inheritance is resolved by the caller, which knows the forest;
// here only direct and root grants apply.
func (a *Access) levelOn(streamID string) Level {
	if a.Personal {
		return LevelManage
	}
	best := LevelNone
	for _, p := range a.Permissions {
		if p.StreamID != streamID && p.StreamID != storeid.Root {
			continue
		}
		if p.Level > best {
			best = p.Level
		}
	}
	return best
}

// CanReadStream reports whether the access may read events in the stream.
func (a *Access) CanReadStream(streamID string) bool {
	return a.levelOn(streamID) >= LevelRead
}

// CanWriteStream reports whether the access may write events in the stream.
func (a *Access) CanWriteStream(streamID string) bool {
	return a.levelOn(streamID) >= LevelContribute
}

// Resolver fetches the access behind a credential.
type Resolver interface {
	// Resolve returns the access for the credential, or an unknown-resource
	// error when the credential is invalid or revoked.
	Resolve(ctx context.Context, uid, credential string) (*Access, error)
}
