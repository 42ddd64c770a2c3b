package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"github.com/gear6io/promptvalley/pkg/sdk"
	"github.com/gear6io/promptvalley/server/records"
	"github.com/gear6io/promptvalley/server/sheet"
	"go.uber.org/zap"
)

var (
	categories = []string{"Marketing", "Engineering", "Writing", "Research", "Sales", "Support"}
	tags       = []string{"seo", "email", "code-review", "summary", "outline", "translation", "brainstorm", "tone"}
	subjects   = []string{"a product launch", "a bug report", "a quarterly review", "an onboarding guide", "a cold email", "a release note"}
)

func main() {
	addr := flag.String("server", "http://127.0.0.1:2847", "PromptValley server URL")
	count := flag.Int("prompts", 1000, "number of prompts to import")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting PromptValley ingestion script")

	options, err := sdk.ParseDSN(*addr)
	if err != nil {
		logger.Fatal("Invalid server address", zap.Error(err))
	}
	options.Logger = logger

	client, err := sdk.Open(options)
	if err != nil {
		logger.Fatal("Failed to connect to PromptValley server", zap.Error(err))
	}
	logger.Info("Server ping successful")

	ctx := context.Background()
	categoryIDs, err := seed(ctx, client, "categories", categories)
	if err != nil {
		logger.Fatal("Failed to seed categories", zap.Error(err))
	}
	tagIDs, err := seed(ctx, client, "tags", tags)
	if err != nil {
		logger.Fatal("Failed to seed tags", zap.Error(err))
	}
	logger.Info("Taxonomy ready", zap.Int("categories", len(categoryIDs)), zap.Int("tags", len(tagIDs)))

	before, err := client.Records().Count(ctx, "prompts")
	if err != nil {
		logger.Fatal("Failed to count prompts", zap.Error(err))
	}

	if err := ingestPrompts(ctx, client, *count, categoryIDs, tagIDs); err != nil {
		logger.Fatal("Failed to ingest prompts", zap.Error(err))
	}

	if err := verifyData(ctx, client, before+*count); err != nil {
		logger.Fatal("Failed to verify data", zap.Error(err))
	}
	logger.Info("Ingestion script completed successfully")
}

// seed creates each named row unless one with that name exists and returns
// the ids of all of them
func seed(ctx context.Context, client *sdk.Client, resource string, names []string) ([]string, error) {
	ids := make([]string, 0, len(names))
	for _, name := range names {
		existing, err := client.Records().List(ctx, resource, records.Query{
			Filters: []records.Filter{records.Eq("name", name)},
			Limit:   1,
		})
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			ids = append(ids, existing[0].ID())
			continue
		}

		rec, err := client.Records().Create(ctx, resource, records.Record{
			"name": name,
			"slug": strings.ToLower(strings.ReplaceAll(name, " ", "-")),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create %s %q: %w", resource, name, err)
		}
		ids = append(ids, rec.ID())
	}
	return ids, nil
}

// generatePrompt returns one spreadsheet row in prompt column order
func generatePrompt(i int, categoryIDs, tagIDs []string) []string {
	subject := subjects[rand.Intn(len(subjects))]

	picked := rand.Perm(len(tagIDs))[:1+rand.Intn(3)]
	rowTags := make([]string, len(picked))
	for j, idx := range picked {
		rowTags[j] = tagIDs[idx]
	}

	return []string{
		fmt.Sprintf("Prompt %04d: %s", i, subject),
		fmt.Sprintf("Write %s for {{audience}} in a %s tone.", subject, []string{"friendly", "formal", "playful"}[rand.Intn(3)]),
		categoryIDs[rand.Intn(len(categoryIDs))],
		fmt.Sprint(rand.Float64() < 0.1),
		strings.Join(rowTags, ","),
	}
}

// ingestPrompts renders count prompts as a CSV and sends it through the
// import endpoint in one run
func ingestPrompts(ctx context.Context, client *sdk.Client, count int, categoryIDs, tagIDs []string) error {
	headers := []string{"Title", "Content", "Category ID", "Featured", "Tags"}
	rows := make([][]string, count)
	for i := range rows {
		rows[i] = generatePrompt(i+1, categoryIDs, tagIDs)
	}

	var buf bytes.Buffer
	if err := sheet.Write(&buf, sheet.FormatCSV, headers, rows); err != nil {
		return fmt.Errorf("failed to render CSV: %w", err)
	}
	log.Printf("Sending %d prompts (%d bytes)...", count, buf.Len())

	resp, err := client.Import(ctx, "prompts", "prompts.csv", &buf, false)
	if err != nil {
		return fmt.Errorf("import request failed: %w", err)
	}
	for _, w := range resp.Warnings {
		log.Printf("Warning: %s", w.Message())
	}
	if resp.Result.Failed > 0 {
		return fmt.Errorf("%d of %d rows failed, first: %s", resp.Result.Failed, resp.Result.Total(), resp.Result.FailedRows()[0].Error)
	}

	log.Printf("Imported %d prompts in run %s", resp.Result.Success, resp.Result.RunID)
	return nil
}

// verifyData checks the prompt count and prints a joined sample
func verifyData(ctx context.Context, client *sdk.Client, expected int) error {
	actual, err := client.Records().Count(ctx, "prompts")
	if err != nil {
		return fmt.Errorf("failed to count prompts: %w", err)
	}
	if actual != expected {
		return fmt.Errorf("prompt count mismatch: expected %d, got %d", expected, actual)
	}
	log.Printf("Verified prompt count: %d", actual)

	sample, err := client.Records().Raw(ctx, `
		SELECT p.title, c.name AS category, count(pt.tag_id) AS tags
		FROM prompts p
		JOIN categories c ON c.id = p.category_id
		LEFT JOIN prompt_tags pt ON pt.prompt_id = p.id
		GROUP BY p.id
		ORDER BY p.created_at DESC
		LIMIT 5`)
	if err != nil {
		return fmt.Errorf("failed to query sample prompts: %w", err)
	}
	if len(sample) == 0 {
		return fmt.Errorf("no sample prompts found")
	}

	log.Println("Sample prompts:")
	for _, rec := range sample {
		log.Printf("  %v | %v | %v tag(s)", rec["title"], rec["category"], rec["tags"])
	}
	return nil
}
