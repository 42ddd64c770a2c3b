package catalog

import (
	"time"

	"github.com/uptrace/bun"
)

// TimeAuditable provides common timestamp fields for all auditable entities
type TimeAuditable struct {
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// =============================================================================
// AI PROVIDERS AND MODELS
// =============================================================================

// AIProvider is a vendor of AI models (OpenAI, Anthropic, ...)
type AIProvider struct {
	bun.BaseModel `bun:"table:ai_providers"`
	TimeAuditable `bun:",inherit"`

	ID          string `bun:"id,pk,type:text" json:"id"`
	Name        string `bun:"name,notnull,unique" json:"name"`
	Website     string `bun:"website,nullzero" json:"website,omitempty"`
	Description string `bun:"description,nullzero" json:"description,omitempty"`
	LogoURL     string `bun:"logo_url,nullzero" json:"logo_url,omitempty"`
}

// AIModel is a single model offered by a provider
type AIModel struct {
	bun.BaseModel `bun:"table:ai_models"`
	TimeAuditable `bun:",inherit"`

	ID            string `bun:"id,pk,type:text" json:"id"`
	ProviderID    string `bun:"provider_id,notnull,type:text" json:"provider_id"`
	Name          string `bun:"name,notnull" json:"name"`
	Description   string `bun:"description,nullzero" json:"description,omitempty"`
	ContextWindow int64  `bun:"context_window,nullzero" json:"context_window,omitempty"`
	IsActive      bool   `bun:"is_active,notnull,default:true" json:"is_active"`

	Provider *AIProvider `bun:"rel:belongs-to,join:provider_id=id"`
}

// =============================================================================
// TAXONOMY
// =============================================================================

// Category groups prompts; each prompt has at most one
type Category struct {
	bun.BaseModel `bun:"table:categories"`
	TimeAuditable `bun:",inherit"`

	ID          string `bun:"id,pk,type:text" json:"id"`
	Name        string `bun:"name,notnull" json:"name"`
	Slug        string `bun:"slug,unique,nullzero" json:"slug,omitempty"`
	Description string `bun:"description,nullzero" json:"description,omitempty"`
	Icon        string `bun:"icon,nullzero" json:"icon,omitempty"`
}

// Tag is a free-form label attached to prompts through prompt_tags
type Tag struct {
	bun.BaseModel `bun:"table:tags"`
	TimeAuditable `bun:",inherit"`

	ID   string `bun:"id,pk,type:text" json:"id"`
	Name string `bun:"name,notnull,unique" json:"name"`
	Slug string `bun:"slug,nullzero" json:"slug,omitempty"`
}

// =============================================================================
// PROMPTS
// =============================================================================

// Prompt is the central catalog entity
type Prompt struct {
	bun.BaseModel `bun:"table:prompts"`
	TimeAuditable `bun:",inherit"`

	ID          string `bun:"id,pk,type:text" json:"id"`
	Title       string `bun:"title,notnull" json:"title"`
	Content     string `bun:"content,notnull" json:"content"`
	Description string `bun:"description,nullzero" json:"description,omitempty"`
	CategoryID  string `bun:"category_id,nullzero,type:text" json:"category_id,omitempty"`
	ImageURL    string `bun:"image_url,nullzero" json:"image_url,omitempty"`
	IsFeatured  bool   `bun:"is_featured,notnull,default:false" json:"is_featured"`
	IsPremium   bool   `bun:"is_premium,notnull,default:false" json:"is_premium"`

	Category *Category `bun:"rel:belongs-to,join:category_id=id"`
}

// PromptTag links prompts and tags
type PromptTag struct {
	bun.BaseModel `bun:"table:prompt_tags"`

	PromptID  string    `bun:"prompt_id,pk,type:text" json:"prompt_id"`
	TagID     string    `bun:"tag_id,pk,type:text" json:"tag_id"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// PromptModel links prompts and the AI models they are written for
type PromptModel struct {
	bun.BaseModel `bun:"table:prompt_models"`

	PromptID  string    `bun:"prompt_id,pk,type:text" json:"prompt_id"`
	ModelID   string    `bun:"model_id,pk,type:text" json:"model_id"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// =============================================================================
// MEDIA
// =============================================================================

// StorageBucket is the bucket metadata row kept next to the object store
type StorageBucket struct {
	bun.BaseModel `bun:"table:storage_buckets"`
	TimeAuditable `bun:",inherit"`

	ID               string   `bun:"id,pk,type:text" json:"id"`
	Name             string   `bun:"name,notnull,unique" json:"name"`
	Owner            string   `bun:"owner,nullzero" json:"owner,omitempty"`
	Public           bool     `bun:"public,notnull,default:false" json:"public"`
	FileSizeLimit    *int64   `bun:"file_size_limit" json:"file_size_limit,omitempty"`
	AllowedMimeTypes []string `bun:"allowed_mime_types,type:text" json:"allowed_mime_types,omitempty"`
}
