package service

import (
	"errors"
	"fmt"

	"gen-gallery/internal/models"

	"gorm.io/gorm"
)

// ImageRecordReader 图片记录查询接口
type ImageRecordReader interface {
	GetByID(id uint) (*models.ImageRecord, error)
	ListByUserID(userID uint, offset, limit int) ([]models.ImageRecord, int64, error)
	DeleteByIDAndUserID(id, userID uint) (int64, error)
}

// GalleryService 图库服务，所有操作按所有者隔离
type GalleryService struct {
	records ImageRecordReader
}

// NewGalleryService 创建图库服务
func NewGalleryService(records ImageRecordReader) *GalleryService {
	return &GalleryService{records: records}
}

// ListMine 获取当前用户的图片，最新的在前；limit<=0 时返回全部
func (s *GalleryService) ListMine(userID uint, offset, limit int) ([]models.ImageRecord, int64, error) {
	records, total, err := s.records.ListByUserID(userID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("查询图片列表失败: %w", err)
	}
	return records, total, nil
}

// GetOne 获取单张图片
func (s *GalleryService) GetOne(id, userID uint) (*models.ImageRecord, error) {
	record, err := s.records.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("查询图片失败: %w", err)
	}

	if record.UserID != userID {
		return nil, ErrForbidden
	}

	return record, nil
}

// Delete 删除属于当前用户的图片，未匹配时不报错
func (s *GalleryService) Delete(id, userID uint) (bool, error) {
	rows, err := s.records.DeleteByIDAndUserID(id, userID)
	if err != nil {
		return false, fmt.Errorf("删除图片失败: %w", err)
	}
	return rows > 0, nil
}
