package models

import (
	"time"
)

// ImageRecord 图库图片记录
type ImageRecord struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	URL          string    `gorm:"size:1024;not null" json:"url"`
	ThumbnailURL *string   `gorm:"size:1024" json:"thumbnail_url,omitempty"`
	ObjectKey    string    `gorm:"size:255;index" json:"object_key"`
	ThumbnailKey *string   `gorm:"size:255;index" json:"-"`
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	Model        *string   `gorm:"size:255" json:"model,omitempty"`
	Prompt       *string   `gorm:"type:text" json:"prompt,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (ImageRecord) TableName() string {
	return "images"
}

// IsGenerated 是否带有生成信息
func (r *ImageRecord) IsGenerated() bool {
	return r.Model != nil && r.Prompt != nil
}
