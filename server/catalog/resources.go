package catalog

import (
	"sort"
	"strings"

	"github.com/gear6io/promptvalley/pkg/errors"
)

// RelationKind distinguishes plain foreign key columns from junction tables
type RelationKind string

const (
	OneToOne   RelationKind = "one-to-one"
	ManyToMany RelationKind = "many-to-many"
)

// MissingPolicy decides what happens to references that do not resolve
type MissingPolicy string

const (
	// MissingFail lets the store reject the row with a foreign key violation
	MissingFail MissingPolicy = "fail"
	// MissingSkip drops unresolved many-to-many ids and records them on the row
	MissingSkip MissingPolicy = "skip"
)

// Column maps a record field to a spreadsheet header
type Column struct {
	Field   string `json:"field" yaml:"field"`
	Header  string `json:"header" yaml:"header"`
	Example string `json:"example,omitempty" yaml:"example,omitempty"`
}

// Relationship declares a field that references another resource
type Relationship struct {
	Field     string        `json:"field" yaml:"field"`
	Kind      RelationKind  `json:"kind" yaml:"kind"`
	Resource  string        `json:"resource" yaml:"resource"`
	Junction  string        `json:"junction,omitempty" yaml:"junction,omitempty"`
	SourceKey string        `json:"source_key,omitempty" yaml:"source_key,omitempty"`
	TargetKey string        `json:"target_key,omitempty" yaml:"target_key,omitempty"`
	OnMissing MissingPolicy `json:"on_missing,omitempty" yaml:"on_missing,omitempty"`
}

// Keys returns the junction columns pointing at the owning resource and at
// the related resource, deriving singular(name)+"_id" when not configured
func (r Relationship) Keys(owner string) (source, target string) {
	source, target = r.SourceKey, r.TargetKey
	if source == "" {
		source = Singular(owner) + "_id"
	}
	if target == "" {
		target = Singular(r.Resource) + "_id"
	}
	return source, target
}

// Resource describes one importable/exportable table
type Resource struct {
	Name          string
	Model         interface{}
	Columns       []Column
	Relationships []Relationship
	// Junction tables have no id column and are only written through relationships
	Junction bool
}

// Headers returns the spreadsheet headers in column order
func (r *Resource) Headers() []string {
	headers := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		headers[i] = c.Header
	}
	return headers
}

// Examples returns the example values in column order
func (r *Resource) Examples() []string {
	examples := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		examples[i] = c.Example
	}
	return examples
}

// Relationship returns the relationship declared on field, if any
func (r *Resource) Relationship(field string) (Relationship, bool) {
	for _, rel := range r.Relationships {
		if rel.Field == field {
			return rel, true
		}
	}
	return Relationship{}, false
}

var resources = map[string]*Resource{
	"ai_providers": {
		Name:  "ai_providers",
		Model: (*AIProvider)(nil),
		Columns: []Column{
			{Field: "id", Header: "ID", Example: ""},
			{Field: "name", Header: "Name", Example: "Anthropic"},
			{Field: "website", Header: "Website", Example: "https://www.anthropic.com"},
			{Field: "description", Header: "Description", Example: "AI safety company"},
			{Field: "logo_url", Header: "Logo URL", Example: ""},
		},
	},
	"ai_models": {
		Name:  "ai_models",
		Model: (*AIModel)(nil),
		Columns: []Column{
			{Field: "id", Header: "ID", Example: ""},
			{Field: "provider_id", Header: "Provider ID", Example: "01J9Z3K6X8Q2W4E6R8T0Y2U4I6"},
			{Field: "name", Header: "Name", Example: "claude-sonnet"},
			{Field: "description", Header: "Description", Example: "General purpose model"},
			{Field: "context_window", Header: "Context Window", Example: "200000"},
			{Field: "is_active", Header: "Active", Example: "true"},
		},
		Relationships: []Relationship{
			{Field: "provider_id", Kind: OneToOne, Resource: "ai_providers"},
		},
	},
	"categories": {
		Name:  "categories",
		Model: (*Category)(nil),
		Columns: []Column{
			{Field: "id", Header: "ID", Example: ""},
			{Field: "name", Header: "Name", Example: "Marketing"},
			{Field: "slug", Header: "Slug", Example: "marketing"},
			{Field: "description", Header: "Description", Example: "Copywriting and campaigns"},
			{Field: "icon", Header: "Icon", Example: "megaphone"},
		},
	},
	"tags": {
		Name:  "tags",
		Model: (*Tag)(nil),
		Columns: []Column{
			{Field: "id", Header: "ID", Example: ""},
			{Field: "name", Header: "Name", Example: "seo"},
			{Field: "slug", Header: "Slug", Example: "seo"},
		},
	},
	"prompts": {
		Name:  "prompts",
		Model: (*Prompt)(nil),
		Columns: []Column{
			{Field: "id", Header: "ID", Example: ""},
			{Field: "title", Header: "Title", Example: "Blog outline generator"},
			{Field: "content", Header: "Content", Example: "Write an outline for a post about {{topic}}"},
			{Field: "description", Header: "Description", Example: "Produces a structured outline"},
			{Field: "category_id", Header: "Category ID", Example: "01J9Z3K6X8Q2W4E6R8T0Y2U4I6"},
			{Field: "image_url", Header: "Image URL", Example: ""},
			{Field: "is_featured", Header: "Featured", Example: "false"},
			{Field: "is_premium", Header: "Premium", Example: "false"},
			{Field: "tags", Header: "Tags", Example: "tag-id-1,tag-id-2"},
			{Field: "models", Header: "Models", Example: "model-id-1"},
		},
		Relationships: []Relationship{
			{Field: "category_id", Kind: OneToOne, Resource: "categories"},
			{Field: "tags", Kind: ManyToMany, Resource: "tags", Junction: "prompt_tags"},
			{Field: "models", Kind: ManyToMany, Resource: "ai_models", Junction: "prompt_models", TargetKey: "model_id"},
		},
	},
	"prompt_tags": {
		Name:     "prompt_tags",
		Model:    (*PromptTag)(nil),
		Junction: true,
	},
	"prompt_models": {
		Name:     "prompt_models",
		Model:    (*PromptModel)(nil),
		Junction: true,
	},
	"storage_buckets": {
		Name:  "storage_buckets",
		Model: (*StorageBucket)(nil),
	},
}

// Lookup returns the resource registered under name
func Lookup(name string) (*Resource, error) {
	if r, ok := resources[name]; ok {
		return r, nil
	}
	return nil, errors.New(ErrUnknownResource, "unknown resource", nil).AddContext("resource", name)
}

// Names returns every registered resource, sorted
func Names() []string {
	names := make([]string, 0, len(resources))
	for name := range resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Transferable returns the resources that carry a column mapping
func Transferable() []string {
	var names []string
	for _, name := range Names() {
		if len(resources[name].Columns) > 0 {
			names = append(names, name)
		}
	}
	return names
}

// Singular strips a plural suffix: categories -> category, prompts -> prompt
func Singular(name string) string {
	switch {
	case strings.HasSuffix(name, "ies"):
		return strings.TrimSuffix(name, "ies") + "y"
	case strings.HasSuffix(name, "sses"), strings.HasSuffix(name, "xes"):
		return strings.TrimSuffix(name, "es")
	case strings.HasSuffix(name, "s") && !strings.HasSuffix(name, "ss"):
		return strings.TrimSuffix(name, "s")
	}
	return name
}
