package document

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentStatus 文档状态
type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing" // 处理中
	StatusAvailable  DocumentStatus = "available"  // 可用
	StatusError      DocumentStatus = "error"      // 失败
)

// Document 文档元数据模型。Filename 全局唯一，
// 它同时是向量库 payload 里的 doc_name。
type Document struct {
	ID              string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Filename        string         `gorm:"type:varchar(255);not null;uniqueIndex" json:"filename"`
	Status          DocumentStatus `gorm:"type:varchar(20);default:'processing';index" json:"status"`
	PageCount       int            `gorm:"default:0" json:"page_count"`
	ChunkCount      int            `gorm:"default:0" json:"chunk_count"`
	UploadTimestamp time.Time      `json:"upload_timestamp"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate GORM Hook
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = "doc_" + uuid.New().String()[:8]
	}
	if d.UploadTimestamp.IsZero() {
		d.UploadTimestamp = time.Now()
	}
	return nil
}

// TableName 指定表名
func (Document) TableName() string {
	return "documents"
}
