package workspace

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Workspace 工作区模型。成员文档在创建时固定，之后不可变。
// DocumentIDs 以 JSON 数组序列化存储，保持顺序。
type Workspace struct {
	ID             string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name           string         `gorm:"type:varchar(200);not null" json:"name"`
	DocumentIDsRaw string         `gorm:"column:document_ids;type:text;not null" json:"-"`
	ChunkCount     int            `gorm:"default:0" json:"chunk_count"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"-"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate GORM Hook
func (w *Workspace) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = NewWorkspaceID()
	}
	if w.DocumentIDsRaw == "" {
		w.DocumentIDsRaw = "[]"
	}
	return nil
}

// TableName 指定表名
func (Workspace) TableName() string {
	return "workspaces"
}

// NewWorkspaceID 生成工作区 ID：ws_ + uuid 前 8 位
func NewWorkspaceID() string {
	return "ws_" + uuid.New().String()[:8]
}

// DocumentIDs 反序列化成员文档 ID 列表
func (w *Workspace) DocumentIDs() []string {
	if w.DocumentIDsRaw == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(w.DocumentIDsRaw), &ids); err != nil {
		return nil
	}
	return ids
}

// SetDocumentIDs 序列化成员文档 ID 列表
func (w *Workspace) SetDocumentIDs(ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	w.DocumentIDsRaw = string(data)
	return nil
}

// CollectionName 工作区对应的向量集合名
func (w *Workspace) CollectionName() string {
	return "workspace_" + w.ID
}

// MarshalJSON 输出时展开 document_ids
func (w Workspace) MarshalJSON() ([]byte, error) {
	type alias Workspace
	return json.Marshal(struct {
		alias
		DocumentIDs []string `json:"document_ids"`
	}{
		alias:       alias(w),
		DocumentIDs: w.DocumentIDs(),
	})
}
