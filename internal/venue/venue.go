package venue

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed venues.yaml
var defaultRegistry []byte

// ErrInvalidVenue marks configuration that can never produce a valid run.
var ErrInvalidVenue = errors.New("invalid venue")

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Venue is one room and the pages listing its shows
type Venue struct {
	Name          string   `yaml:"name" json:"name"`
	Slug          string   `yaml:"slug" json:"slug"`
	CandidateURLs []string `yaml:"candidate_urls" json:"candidate_urls"`
	Disabled      bool     `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

// Validate reports configuration mistakes. Errors wrap ErrInvalidVenue.
func (v Venue) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidVenue)
	}
	if v.Slug == "" {
		return fmt.Errorf("%w: %s: slug is required", ErrInvalidVenue, v.Name)
	}
	if !slugPattern.MatchString(v.Slug) {
		return fmt.Errorf("%w: %s: slug %q must be lowercase words joined by '-'", ErrInvalidVenue, v.Name, v.Slug)
	}
	if len(v.CandidateURLs) == 0 {
		return fmt.Errorf("%w: %s: at least one candidate URL is required", ErrInvalidVenue, v.Slug)
	}
	for i, raw := range v.CandidateURLs {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%w: %s: candidate URL %d: %v", ErrInvalidVenue, v.Slug, i, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %s: candidate URL %d must be an absolute http(s) URL: %q", ErrInvalidVenue, v.Slug, i, raw)
		}
	}
	return nil
}

// Registry is the configured list of venues
type Registry struct {
	Venues []Venue `yaml:"venues" json:"venues"`
}

// Parse decodes and validates a YAML registry.
func Parse(data []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parsing venue registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// LoadFile reads a registry from path.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading venue registry: %w", err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// Default returns the embedded San Francisco registry.
func Default() *Registry {
	reg, err := Parse(defaultRegistry)
	if err != nil {
		panic(fmt.Sprintf("embedded venue registry is invalid: %v", err))
	}
	return reg
}

// Load reads path, or returns the embedded registry when path is empty.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// Validate checks every venue and rejects duplicate slugs.
func (r *Registry) Validate() error {
	seen := make(map[string]bool, len(r.Venues))
	for i, v := range r.Venues {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("venue %d: %w", i, err)
		}
		if seen[v.Slug] {
			return fmt.Errorf("%w: duplicate slug %q", ErrInvalidVenue, v.Slug)
		}
		seen[v.Slug] = true
	}
	return nil
}

// Enabled returns the venues not marked disabled, in registry order.
func (r *Registry) Enabled() []Venue {
	out := make([]Venue, 0, len(r.Venues))
	for _, v := range r.Venues {
		if !v.Disabled {
			out = append(out, v)
		}
	}
	return out
}

// Find returns the venue with the given slug.
func (r *Registry) Find(slug string) (Venue, bool) {
	for _, v := range r.Venues {
		if strings.EqualFold(v.Slug, slug) {
			return v, true
		}
	}
	return Venue{}, false
}
