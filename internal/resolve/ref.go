package resolve

import (
	"path"
	"regexp"
	"strings"

	"github.com/mark3labs/oasgen/internal/spec"
)

var refPattern = regexp.MustCompile(`^([^#]*)#/components/([^/]+)/(.+)$`)

// Reference is a parsed `$ref` string. It either names a component
// (Category and Name set, Source optionally naming another document) or is
// an external path to a file holding the value itself.
type Reference struct {
	Source   string
	Category spec.Category
	Name     string
	Path     string
}

// IsComponent reports whether r points into a components section.
func (r Reference) IsComponent() bool { return r.Category != 0 }

// String renders the reference back in `$ref` form.
func (r Reference) String() string {
	if !r.IsComponent() {
		return r.Path
	}
	return r.Source + "#/components/" + r.Category.Key() + "/" + r.Name
}

// key identifies the reference within one resolution chain.
func (r Reference) key() string {
	if !r.IsComponent() {
		return cleanPath(r.Path)
	}
	src := r.Source
	if src != "" {
		src = cleanPath(src)
	}
	return src + "#/components/" + r.Category.Key() + "/" + r.Name
}

// ParseRef parses a `$ref` string. Strings that do not look like component
// references are external paths; component references with an unknown
// category fail with InvalidCategory.
func ParseRef(ref string) (Reference, error) {
	m := refPattern.FindStringSubmatch(ref)
	if m == nil {
		return Reference{Path: ref}, nil
	}
	cat, ok := spec.ParseCategory(m[2])
	if !ok {
		return Reference{}, spec.Errorf(spec.InvalidCategory, "invalid component category %q in reference %q", m[2], ref)
	}
	return Reference{Source: m[1], Category: cat, Name: m[3]}, nil
}

func cleanPath(p string) string {
	return path.Clean(strings.ReplaceAll(p, `\`, "/"))
}
