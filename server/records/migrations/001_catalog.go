package migrations

import (
	"context"

	"github.com/gear6io/promptvalley/pkg/errors"
	"github.com/gear6io/promptvalley/server/catalog"
	"github.com/uptrace/bun"
)

// Migration001 creates the prompt catalog: providers, models, taxonomy,
// prompts and the two junction tables
type Migration001 struct{}

func (m *Migration001) Version() int {
	return 1
}

func (m *Migration001) Name() string {
	return "prompt_catalog"
}

func (m *Migration001) Description() string {
	return "AI providers and models, categories, tags, prompts and prompt junction tables"
}

type tableSpec struct {
	name        string
	model       interface{}
	foreignKeys []string
}

// Up runs the migration
func (m *Migration001) Up(ctx context.Context, tx bun.Tx) error {
	tables := []tableSpec{
		{name: "ai_providers", model: (*catalog.AIProvider)(nil)},
		{
			name:  "ai_models",
			model: (*catalog.AIModel)(nil),
			foreignKeys: []string{
				`("provider_id") REFERENCES "ai_providers" ("id") ON DELETE CASCADE`,
			},
		},
		{name: "categories", model: (*catalog.Category)(nil)},
		{name: "tags", model: (*catalog.Tag)(nil)},
		{
			name:  "prompts",
			model: (*catalog.Prompt)(nil),
			foreignKeys: []string{
				`("category_id") REFERENCES "categories" ("id") ON DELETE SET NULL`,
			},
		},
		{
			name:  "prompt_tags",
			model: (*catalog.PromptTag)(nil),
			foreignKeys: []string{
				`("prompt_id") REFERENCES "prompts" ("id") ON DELETE CASCADE`,
				`("tag_id") REFERENCES "tags" ("id") ON DELETE CASCADE`,
			},
		},
		{
			name:  "prompt_models",
			model: (*catalog.PromptModel)(nil),
			foreignKeys: []string{
				`("prompt_id") REFERENCES "prompts" ("id") ON DELETE CASCADE`,
				`("model_id") REFERENCES "ai_models" ("id") ON DELETE CASCADE`,
			},
		},
	}

	for _, table := range tables {
		q := tx.NewCreateTable().Model(table.model).IfNotExists()
		for _, fk := range table.foreignKeys {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return errors.New(MigrationTableCreationFailed, "failed to create table", err).AddContext("table", table.name)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_ai_models_provider ON ai_models(provider_id)`,
		`CREATE INDEX IF NOT EXISTS idx_prompts_category ON prompts(category_id)`,
		`CREATE INDEX IF NOT EXISTS idx_prompts_created ON prompts(created_at DESC, id DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_prompt_tags_tag ON prompt_tags(tag_id)`,
		`CREATE INDEX IF NOT EXISTS idx_prompt_models_model ON prompt_models(model_id)`,
	}
	for _, stmt := range indexes {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.New(MigrationIndexCreationFailed, "failed to create index", err).AddContext("statement", stmt)
		}
	}

	return nil
}
