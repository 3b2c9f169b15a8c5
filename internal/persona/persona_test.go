package persona_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightloop/insightloop-backend/internal/persona"
)

const testYAML = `
personas:
  - id: 1
    slug: market-research
    name: Persona Forge
    token: deployment-one
    welcome: "What persona would you like me to create today??"
    fallback: "Canned one"
  - id: 2
    slug: customer-insights
    name: MessageCraft
    token: deployment-two
    welcome: "Describe the persona"
    fallback: "Canned two"
    features:
      - Copy Optimization
`

func writePersonaFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "personas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	r, err := persona.Load(writePersonaFile(t, testYAML), nil)
	require.NoError(t, err)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "Persona Forge", list[0].Name)
	assert.Equal(t, []int{1, 2}, r.IDs())

	p, ok := r.Get(2)
	require.True(t, ok)
	assert.Equal(t, "deployment-two", p.Token)
	assert.Equal(t, []string{"Copy Optimization"}, p.Features)

	_, ok = r.Get(7)
	assert.False(t, ok)
}

func TestLoadTokenOverrides(t *testing.T) {
	r, err := persona.Load(writePersonaFile(t, testYAML), map[int]string{2: "deployment-rotated"})
	require.NoError(t, err)

	p, _ := r.Get(1)
	assert.Equal(t, "deployment-one", p.Token)
	p, _ = r.Get(2)
	assert.Equal(t, "deployment-rotated", p.Token)
}

func TestResolveAcceptsIDOrSlug(t *testing.T) {
	r, err := persona.Load(writePersonaFile(t, testYAML), nil)
	require.NoError(t, err)

	id, ok := r.Resolve("customer-insights")
	require.True(t, ok)
	assert.Equal(t, 2, id)

	id, ok = r.Resolve(" 1 ")
	require.True(t, ok)
	assert.Equal(t, 1, id)

	_, ok = r.Resolve("no-such-slug")
	assert.False(t, ok)
	_, ok = r.Resolve("9")
	assert.False(t, ok)
}

func TestWelcomeAndFallbackDefaults(t *testing.T) {
	r, err := persona.Load(writePersonaFile(t, testYAML), nil)
	require.NoError(t, err)

	assert.Equal(t, "Canned two", r.Fallback(2))
	assert.Equal(t, persona.GenericFallback, r.Fallback(42))
	assert.Equal(t, "Describe the persona", r.Welcome(2))
	assert.Equal(t, persona.GenericWelcome, r.Welcome(42))
}

func TestNewRejectsBadTables(t *testing.T) {
	_, err := persona.New(nil, nil)
	assert.Error(t, err)

	_, err = persona.New([]persona.Config{{ID: 0, Name: "zero"}}, nil)
	assert.Error(t, err)

	_, err = persona.New([]persona.Config{
		{ID: 1, Slug: "a", Name: "one"},
		{ID: 1, Slug: "b", Name: "dup"},
	}, nil)
	assert.Error(t, err)

	_, err = persona.New([]persona.Config{
		{ID: 1, Slug: "same", Name: "one"},
		{ID: 2, Slug: "same", Name: "two"},
	}, nil)
	assert.Error(t, err)
}
