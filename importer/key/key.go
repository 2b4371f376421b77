package key

import (
	"strings"
)

// Separator joins the import instance prefix and the natural id of a source row.
const Separator = "^"

// likeEscape is the escape character used in LIKE patterns built by LikePattern.
const likeEscape = "!"

type Resolver struct {
	Prefix string
}

func NewResolver(prefix string) Resolver {
	return Resolver{Prefix: strings.TrimSpace(prefix)}
}

// Resolve returns the identity key for a natural id. A blank natural id has no key,
// the row can then be neither deduplicated nor referenced.
func (r Resolver) Resolve(naturalID string) (string, bool) {
	naturalID = strings.TrimSpace(naturalID)
	if naturalID == "" {
		return "", false
	}
	return r.Prefix + Separator + naturalID, true
}

// Owns reports whether a stored key was produced by this resolver's prefix.
func (r Resolver) Owns(key string) bool {
	return strings.HasPrefix(key, r.Prefix+Separator)
}

// Split recovers the prefix and natural id of a key. The natural id may itself contain the separator.
func Split(key string) (prefix string, naturalID string, ok bool) {
	idx := strings.Index(key, Separator)
	if idx < 0 {
		return "", "", false
	}
	return key[:idx], key[idx+len(Separator):], true
}

// LikePattern returns a LIKE pattern matching every key owned by prefix. The pattern is
// escaped with '!', callers must add `escape '!'` to the predicate.
func LikePattern(prefix string) string {
	r := strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")
	return r.Replace(prefix+Separator) + "%"
}
