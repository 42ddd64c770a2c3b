package transfer

import (
	"testing"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/sheet"
	"github.com/stretchr/testify/assert"
)

func TestSchemaPrepare(t *testing.T) {
	res := resource(t, "prompts")
	schema := NewSchema(res.Columns, res.Relationships)

	t.Run("CreatePath", func(t *testing.T) {
		p := schema.Prepare(0, sheet.Row{
			"ID":          "",
			"Title":       "Outline",
			"Content":     "Write an outline",
			"Featured":    "TRUE",
			"Premium":     "false",
			"Category ID": "  cat-1 ",
			"Description": "",
			"Tags":        " t1, ,t2,t1 ",
			"Models":      "",
			"Unmapped":    "dropped",
		})

		assert.True(t, p.OK())
		assert.False(t, p.Upsert)
		assert.Equal(t, "", p.ID())
		assert.NotContains(t, p.Record, "id")
		assert.NotContains(t, p.Record, "description")
		assert.NotContains(t, p.Record, "Unmapped")
		assert.Equal(t, true, p.Record["is_featured"])
		assert.Equal(t, false, p.Record["is_premium"])
		assert.Equal(t, "cat-1", p.Record["category_id"])
		assert.Equal(t, []string{"t1", "t2"}, p.Relations["tags"])
		assert.NotContains(t, p.Relations, "models")
		assert.NotContains(t, p.Record, "tags")
	})

	t.Run("UpsertPath", func(t *testing.T) {
		p := schema.Prepare(3, sheet.Row{"ID": "01ABC", "Title": "x"})
		assert.True(t, p.Upsert)
		assert.Equal(t, "01ABC", p.ID())
		assert.Equal(t, 3, p.Index)
	})

	t.Run("FieldNamesMatchCaseInsensitively", func(t *testing.T) {
		p := schema.Prepare(0, sheet.Row{"title": "x", "CONTENT": "y"})
		assert.Equal(t, "x", p.Record["title"])
		assert.Equal(t, "y", p.Record["content"])
	})

	t.Run("OnlyExactBooleanLiteralsCoerce", func(t *testing.T) {
		p := schema.Prepare(0, sheet.Row{"Title": "x", "Featured": "False", "Premium": " true "})
		assert.Equal(t, false, p.Record["is_featured"])
		assert.Equal(t, " true ", p.Record["is_premium"])
	})

	t.Run("NothingMapped", func(t *testing.T) {
		p := schema.Prepare(4, sheet.Row{"Other": "value"})
		assert.False(t, p.OK())
		assert.True(t, errors.HasCode(p.Err, ErrEmptyRow))
	})

	assert.Len(t, schema.Relations(), 2)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList("a, b"))
	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList(" , ,"))
	assert.Equal(t, []string{"a"}, SplitList("a,a"))
}
