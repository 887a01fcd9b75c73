package tree

import (
	"fmt"
	"strings"
	"unicode"
)

// Separator joins segments in canonical URIs.
const Separator = ":"

func isSeparator(r rune) bool {
	return r == ':' || r == '/'
}

// SplitURI breaks a URI into its segments. Either ':' or '/' separates
// segments, and a single leading or trailing separator is ignored. The
// empty URI names the root and yields no segments.
func SplitURI(uri string) ([]string, error) {
	trimmed := strings.TrimSpace(uri)
	if trimmed != "" && isSeparator(rune(trimmed[0])) {
		trimmed = trimmed[1:]
	}
	if trimmed != "" && isSeparator(rune(trimmed[len(trimmed)-1])) {
		trimmed = trimmed[:len(trimmed)-1]
	}
	if trimmed == "" {
		return nil, nil
	}

	segments := strings.FieldsFunc(trimmed, isSeparator)
	// FieldsFunc drops empty fields; a count mismatch means "a::b".
	if strings.Count(trimmed, ":")+strings.Count(trimmed, "/")+1 != len(segments) {
		return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidURI, uri)
	}
	for _, s := range segments {
		if err := ValidateName(s); err != nil {
			return nil, fmt.Errorf("%w in %q", err, uri)
		}
	}
	return segments, nil
}

// Canonical returns the ':'-joined form of uri.
func Canonical(uri string) (string, error) {
	segments, err := SplitURI(uri)
	if err != nil {
		return "", err
	}
	return strings.Join(segments, Separator), nil
}

// JoinURI appends name to a canonical parent URI.
func JoinURI(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + Separator + name
}

// ValidateName checks that name can be used as a single URI segment.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidURI)
	}
	for _, r := range name {
		if isSeparator(r) || unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return fmt.Errorf("%w: bad character %q in name %q", ErrInvalidURI, r, name)
		}
	}
	return nil
}
