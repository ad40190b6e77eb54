package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Category struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:100;not null;index" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	ParentID    *uint     `gorm:"index" json:"parent_id"` // Nullable, self-reference
	ImageURL    string    `gorm:"size:255" json:"image_url"`
	IsActive    bool      `gorm:"not null;index" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type Product struct {
	ID             uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string         `gorm:"size:200;not null;index" json:"name"`
	Description    string         `gorm:"type:text" json:"description"`
	Price          float64        `gorm:"not null;index" json:"price"`
	DiscountPrice  *float64       `json:"discount_price"`
	SKU            string         `gorm:"size:100;not null;uniqueIndex" json:"sku"`
	StockQuantity  int            `gorm:"not null;default:0" json:"stock_quantity"`
	CategoryID     *uint          `gorm:"index" json:"category_id"`
	Category       *Category      `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
	Brand          string         `gorm:"size:100" json:"brand"`
	Rating         float64        `gorm:"not null;default:0" json:"rating"`
	ReviewCount    int            `gorm:"not null;default:0" json:"review_count"`
	ImageURLs      datatypes.JSON `json:"image_urls"`
	Tags           datatypes.JSON `json:"tags"`
	Specifications datatypes.JSON `json:"specifications"`
	IsActive       bool           `gorm:"not null;index" json:"is_active"`
	IsFeatured     bool           `gorm:"not null;default:false" json:"is_featured"`
	InStock        bool           `gorm:"-" json:"in_stock"` // Derived from StockQuantity
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (p *Product) AfterFind(tx *gorm.DB) error {
	p.deriveFields()
	return nil
}

func (p *Product) BeforeSave(tx *gorm.DB) error {
	p.deriveFields()
	tags, err := canonicalJSON(p.Tags)
	if err != nil {
		return fmt.Errorf("invalid product tags: %w", err)
	}
	p.Tags = tags
	return nil
}

func (p *Product) deriveFields() {
	p.InStock = p.StockQuantity > 0
	if len(p.ImageURLs) == 0 {
		p.ImageURLs = datatypes.JSON("[]")
	}
	if len(p.Tags) == 0 {
		p.Tags = datatypes.JSON("[]")
	}
	if len(p.Specifications) == 0 {
		p.Specifications = datatypes.JSON("{}")
	}
}

// TagList decodes the tags column; a malformed value yields nil.
func (p *Product) TagList() []string {
	var tags []string
	if len(p.Tags) == 0 {
		return nil
	}
	if err := json.Unmarshal(p.Tags, &tags); err != nil {
		return nil
	}
	return tags
}

// encodeJSON marshals v without HTML escaping, so "&", "<" and ">" are stored
// as themselves and stay matchable by text search.
func encodeJSON(v any) (datatypes.JSON, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return datatypes.JSON(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// canonicalJSON re-encodes raw through encodeJSON, undoing escapes such as \u0026.
func canonicalJSON(raw datatypes.JSON) (datatypes.JSON, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return encodeJSON(v)
}

// ChatMessage is one persisted chat exchange. Rows sharing a SessionID form a conversation.
type ChatMessage struct {
	ID          uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID   string         `gorm:"size:100;not null;index:idx_chat_session_created,priority:1" json:"session_id"`
	UserMessage string         `gorm:"type:text;not null" json:"user_message"`
	BotResponse string         `gorm:"type:text;not null" json:"bot_response"`
	Intent      string         `gorm:"size:100" json:"intent"`
	ContextData datatypes.JSON `json:"context_data"`
	CreatedAt   time.Time      `gorm:"index:idx_chat_session_created,priority:2" json:"timestamp"`
}

func (ChatMessage) TableName() string {
	return "chat_sessions"
}

type SearchLog struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Query        string    `gorm:"column:query_text;size:255;not null;index" json:"query"`
	ResultsCount int64     `gorm:"not null;default:0" json:"results_count"`
	SessionID    *string   `gorm:"size:100" json:"session_id"`
	IPAddress    string    `gorm:"size:45" json:"ip_address"`
	CreatedAt    time.Time `gorm:"index" json:"timestamp"`
}

type PopularSearch struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}
