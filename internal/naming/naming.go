// Package naming converts document names into Go identifiers.
package naming

import (
	"go/token"
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"
)

// Pascal returns an exported identifier, e.g. "list_pets" -> "ListPets".
func Pascal(s string) string {
	return ident(strcase.ToCamel(clean(s)), "X")
}

// Append joins base with the Pascal form of s, e.g. ("GetResult", "200")
// -> "GetResult200". s is not escaped since base already starts the name.
func Append(base, s string) string {
	return base + strcase.ToCamel(clean(s))
}

// Camel returns an unexported identifier, e.g. "Widget" -> "widget".
// Go keywords get a trailing underscore.
func Camel(s string) string {
	return ident(strcase.ToLowerCamel(clean(s)), "v")
}

// Snake returns a snake_case name, e.g. "listPets" -> "list_pets".
func Snake(s string) string {
	return strcase.ToSnake(clean(s))
}

// File returns a file-name-safe form of a title, e.g. "Pet Store" -> "pet_store".
func File(title string) string {
	out := Snake(title)
	if out == "" {
		return "api"
	}
	return out
}

// clean replaces characters that cannot appear in identifiers with spaces so
// strcase treats them as word boundaries.
func clean(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, strings.TrimSpace(s))
}

func ident(s, prefix string) string {
	if s == "" {
		return ""
	}
	if unicode.IsDigit(rune(s[0])) {
		s = prefix + s
	}
	if token.IsKeyword(s) {
		s += "_"
	}
	return s
}
