package persona

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Canonical persona identifiers are small positive integers. Kebab-case
// slugs exist only at the HTTP boundary and are converted here.

const (
	GenericWelcome  = "Hello! How can I help you today?"
	GenericFallback = "Sorry, I encountered an error. Please try again."
)

type Config struct {
	ID          int      `yaml:"id"`
	Slug        string   `yaml:"slug"`
	Name        string   `yaml:"name"`
	Token       string   `yaml:"token"`
	Provider    string   `yaml:"provider,omitempty"`
	Welcome     string   `yaml:"welcome"`
	Fallback    string   `yaml:"fallback"`
	Description string   `yaml:"description,omitempty"`
	Color       string   `yaml:"color,omitempty"`
	EmbedURL    string   `yaml:"embed_url,omitempty"`
	Features    []string `yaml:"features,omitempty"`
}

type personaFile struct {
	Personas []Config `yaml:"personas"`
}

// Registry is the immutable persona table, built once at startup and passed
// explicitly to consumers.
type Registry struct {
	byID   map[int]Config
	bySlug map[string]int
	order  []int
}

// Load reads the persona table from a YAML file. Token overrides (from env
// or a local secrets file) replace the tokens shipped in the file.
func Load(path string, overrides map[int]string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona file: %w", err)
	}
	var f personaFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("failed to parse persona file: %w", err)
	}
	return New(f.Personas, overrides)
}

func New(personas []Config, overrides map[int]string) (*Registry, error) {
	if len(personas) == 0 {
		return nil, fmt.Errorf("no personas configured")
	}
	r := &Registry{
		byID:   make(map[int]Config, len(personas)),
		bySlug: make(map[string]int, len(personas)),
	}
	for _, p := range personas {
		if p.ID <= 0 {
			return nil, fmt.Errorf("persona %q: id must be a positive integer", p.Name)
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate persona id %d", p.ID)
		}
		if p.Slug != "" {
			if _, dup := r.bySlug[p.Slug]; dup {
				return nil, fmt.Errorf("duplicate persona slug %q", p.Slug)
			}
			r.bySlug[p.Slug] = p.ID
		}
		if tok, ok := overrides[p.ID]; ok && tok != "" {
			p.Token = tok
		}
		r.byID[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	return r, nil
}

func (r *Registry) Get(id int) (Config, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Resolve accepts either a numeric id or a slug and returns the canonical id.
func (r *Registry) Resolve(ref string) (int, bool) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		_, ok := r.byID[n]
		return n, ok
	}
	id, ok := r.bySlug[ref]
	return id, ok
}

// List returns personas in file order.
func (r *Registry) List() []Config {
	out := make([]Config, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Registry) IDs() []int {
	return append([]int(nil), r.order...)
}

func (r *Registry) Welcome(id int) string {
	if p, ok := r.byID[id]; ok && p.Welcome != "" {
		return p.Welcome
	}
	return GenericWelcome
}

func (r *Registry) Fallback(id int) string {
	if p, ok := r.byID[id]; ok && p.Fallback != "" {
		return p.Fallback
	}
	return GenericFallback
}
