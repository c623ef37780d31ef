// Package assets embeds the built-in card images, logos and the placeholder
// served for images that cannot be resolved.
package assets

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// URLPrefix is where the HTTP server mounts FS
const URLPrefix = "/assets/"

//go:embed cards/*.svg logo.svg card-back.svg placeholder.svg
var FS embed.FS

// DefaultImages returns the URLs of the built-in card faces in name order
func DefaultImages() ([]string, error) {
	entries, err := fs.ReadDir(FS, "cards")
	if err != nil {
		return nil, err
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".svg") {
			continue
		}
		out = append(out, URLPrefix+path.Join("cards", e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// LogoURL is the built-in logo
func LogoURL() string { return URLPrefix + "logo.svg" }

// CardBackURL is the built-in card back
func CardBackURL() string { return URLPrefix + "card-back.svg" }

// Placeholder returns the SVG shown in place of a missing image
func Placeholder() []byte {
	data, err := FS.ReadFile("placeholder.svg")
	if err != nil {
		return []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100"/>`)
	}
	return data
}

// Exists reports whether an /assets/ URL resolves to an embedded file
func Exists(url string) bool {
	if !strings.HasPrefix(url, URLPrefix) {
		return false
	}
	_, err := fs.Stat(FS, strings.TrimPrefix(url, URLPrefix))
	return err == nil
}
