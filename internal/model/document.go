// Package model 定义 Nyx 的持久化数据模型。
package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/kart-io/nyx/pkg/utils/id"
)

// SourceType 文档来源类型。
type SourceType string

const (
	SourceText SourceType = "text"
	SourcePDF  SourceType = "pdf"
	SourceURL  SourceType = "url"
)

// Valid 判断来源类型是否受支持。
func (s SourceType) Valid() bool {
	switch s {
	case SourceText, SourcePDF, SourceURL:
		return true
	}
	return false
}

// Document 知识库文档，归属于一个租户（chatbot）。
// 删除文档时其所有分块一并删除。
type Document struct {
	ID         string         `json:"id" gorm:"primaryKey;type:varchar(26);comment:ULID"`
	TenantID   string         `json:"tenantId" gorm:"column:tenant_id;type:varchar(64);not null;index:idx_documents_tenant_created,priority:1;comment:租户ID"`
	Name       string         `json:"name" gorm:"type:varchar(255);not null"`
	Content    string         `json:"content,omitempty" gorm:"type:text"`
	SourceType SourceType     `json:"sourceType" gorm:"column:source_type;type:varchar(16);not null;default:'text'"`
	SourceURL  *string        `json:"sourceUrl,omitempty" gorm:"column:source_url;type:varchar(2048)"`
	Metadata   datatypes.JSON `json:"metadata" gorm:"type:json"`
	CreatedAt  time.Time      `json:"createdAt" gorm:"autoCreateTime;index:idx_documents_tenant_created,priority:2"`

	// Chunks 仅用于建立外键约束，数据库删除文档时级联删除分块。
	Chunks []Chunk `json:"-" gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for Document.
func (Document) TableName() string {
	return "nyx_documents"
}

// BeforeCreate 分配 ULID。
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = id.NewULID()
	}
	if len(d.Metadata) == 0 {
		d.Metadata = datatypes.JSON("{}")
	}
	return nil
}

// Chunk 文档分块。同一文档的 Index 从 0 开始连续递增。
// Embedding 仅在未配置 Embedding 供应商时为空。
type Chunk struct {
	ID         string                       `json:"id" gorm:"primaryKey;type:varchar(26)"`
	DocumentID string                       `json:"documentId" gorm:"column:document_id;type:varchar(26);not null;uniqueIndex:uk_chunks_document_index,priority:1"`
	TenantID   string                       `json:"tenantId" gorm:"column:tenant_id;type:varchar(64);not null;index"`
	Content    string                       `json:"content" gorm:"type:text;not null"`
	Index      int                          `json:"chunkIndex" gorm:"column:chunk_index;not null;uniqueIndex:uk_chunks_document_index,priority:2"`
	Embedding  datatypes.JSONSlice[float32] `json:"-" gorm:"type:json"`
	Metadata   datatypes.JSON               `json:"metadata" gorm:"type:json"`
	CreatedAt  time.Time                    `json:"createdAt" gorm:"autoCreateTime"`
}

// TableName specifies the table name for Chunk.
func (Chunk) TableName() string {
	return "nyx_chunks"
}

// BeforeCreate 分配 ULID。
func (c *Chunk) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = id.NewULID()
	}
	if len(c.Metadata) == 0 {
		c.Metadata = datatypes.JSON("{}")
	}
	return nil
}

// HasEmbedding 报告分块是否带有向量。
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}
