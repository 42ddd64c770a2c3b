package catalog

import (
	"testing"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSingular(t *testing.T) {
	cases := map[string]string{
		"prompts":      "prompt",
		"categories":   "category",
		"tags":         "tag",
		"ai_models":    "ai_model",
		"ai_providers": "ai_provider",
		"boxes":        "box",
		"classes":      "class",
		"glass":        "glass",
	}
	for in, want := range cases {
		assert.Equal(t, want, Singular(in), in)
	}
}

func TestRelationshipKeys(t *testing.T) {
	prompts, err := Lookup("prompts")
	require.NoError(t, err)

	tags, ok := prompts.Relationship("tags")
	require.True(t, ok)
	src, tgt := tags.Keys(prompts.Name)
	assert.Equal(t, "prompt_id", src)
	assert.Equal(t, "tag_id", tgt)

	models, ok := prompts.Relationship("models")
	require.True(t, ok)
	src, tgt = models.Keys(prompts.Name)
	assert.Equal(t, "prompt_id", src)
	assert.Equal(t, "model_id", tgt)

	_, ok = prompts.Relationship("title")
	assert.False(t, ok)
}

func TestLookup(t *testing.T) {
	_, err := Lookup("users")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrUnknownResource))

	r, err := Lookup("tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "Name", "Slug"}, r.Headers())
	assert.Len(t, r.Examples(), 3)
}

func TestTransferableResources(t *testing.T) {
	names := Transferable()
	assert.Equal(t, []string{"ai_models", "ai_providers", "categories", "prompts", "tags"}, names)
	assert.Contains(t, Names(), "prompt_tags")
}

func TestEveryColumnMappingStartsWithID(t *testing.T) {
	for _, name := range Transferable() {
		r, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, "id", r.Columns[0].Field, name)
	}
}
