package source

import (
	"strings"

	"github.com/sells-group/search-report/internal/fetcher"
	"github.com/sells-group/search-report/internal/model"
)

// DefaultNames is the source list used when none is requested.
var DefaultNames = []string{NameWikipedia, NameMLB, NameGoogle, NameYouTube}

// Registry resolves requested source names to adapters.
type Registry struct {
	sources map[string]Source
	aliases map[string]string
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]Source),
		aliases: make(map[string]string),
	}
}

// Settings configures the endpoints of the built-in sources.
type Settings struct {
	Wikipedia Endpoint
	MLB       Endpoint
	Google    Endpoint
	YouTube   Endpoint
}

// NewDefaultRegistry registers the four built-in sources with their generic
// aliases.
func NewDefaultRegistry(t fetcher.Transport, s Settings) *Registry {
	r := NewRegistry()
	r.Register(NewWikipedia(t, s.Wikipedia), "encyclopedia", "wiki")
	r.Register(NewMLB(t, s.MLB), "organization-site", "organization")
	r.Register(NewGoogle(t, s.Google), "web-search", "web")
	r.Register(NewYouTube(t, s.YouTube), "video-platform", "video")
	return r
}

// Register adds a source under its name and any aliases. A later
// registration with the same name replaces the earlier one.
func (r *Registry) Register(s Source, aliases ...string) {
	name := normalize(s.Name())
	if _, ok := r.sources[name]; !ok {
		r.order = append(r.order, name)
	}
	r.sources[name] = s
	for _, a := range aliases {
		r.aliases[normalize(a)] = name
	}
}

// Lookup returns the source registered under name or one of its aliases.
// Unknown names yield *model.UnknownSourceError.
func (r *Registry) Lookup(name string) (Source, error) {
	key := normalize(name)
	if canonical, ok := r.aliases[key]; ok {
		key = canonical
	}
	s, ok := r.sources[key]
	if !ok {
		return nil, &model.UnknownSourceError{Name: name}
	}
	return s, nil
}

// Names returns canonical names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Count returns the number of registered sources.
func (r *Registry) Count() int {
	return len(r.order)
}

// ParseNames splits a comma-separated source list, trimming and lowercasing
// each entry and dropping empty ones.
func ParseNames(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := normalize(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
