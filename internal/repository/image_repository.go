package repository

import (
	"gen-gallery/internal/models"

	"gorm.io/gorm"
)

// ImageRepository 图片记录数据访问层
type ImageRepository struct {
	db *gorm.DB
}

// NewImageRepository 创建图片记录Repository
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// Create 创建图片记录
func (r *ImageRepository) Create(record *models.ImageRecord) error {
	return r.db.Create(record).Error
}

// GetByID 根据ID获取图片记录
func (r *ImageRepository) GetByID(id uint) (*models.ImageRecord, error) {
	var record models.ImageRecord
	if err := r.db.First(&record, id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByUserID 获取用户的图片列表，按ID倒序
func (r *ImageRepository) ListByUserID(userID uint, offset, limit int) ([]models.ImageRecord, int64, error) {
	var records []models.ImageRecord
	var total int64

	query := r.db.Model(&models.ImageRecord{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := query.Order("id DESC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	err := q.Find(&records).Error
	return records, total, err
}

// DeleteByIDAndUserID 删除属于该用户的图片记录，返回删除行数
func (r *ImageRepository) DeleteByIDAndUserID(id, userID uint) (int64, error) {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.ImageRecord{})
	return result.RowsAffected, result.Error
}

// ListReferencedKeys 获取所有被引用的对象键（含缩略图）
func (r *ImageRepository) ListReferencedKeys() (map[string]struct{}, error) {
	var rows []models.ImageRecord
	if err := r.db.Select("object_key", "thumbnail_key").Find(&rows).Error; err != nil {
		return nil, err
	}

	keys := make(map[string]struct{}, len(rows)*2)
	for _, row := range rows {
		if row.ObjectKey != "" {
			keys[row.ObjectKey] = struct{}{}
		}
		if row.ThumbnailKey != nil && *row.ThumbnailKey != "" {
			keys[*row.ThumbnailKey] = struct{}{}
		}
	}
	return keys, nil
}
