package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gen-gallery/internal/config"
	"gen-gallery/internal/dto"
	"gen-gallery/internal/models"
	"gen-gallery/internal/storage"
	"gen-gallery/pkg/filename_codec"

	"github.com/sirupsen/logrus"
)

// ImageRecordWriter 图片记录写入接口
type ImageRecordWriter interface {
	Create(record *models.ImageRecord) error
}

// ObjectStore 对象存储接口
type ObjectStore interface {
	Put(content []byte) (*storage.StoredObject, error)
	PutThumbnail(key string, content []byte, maxWidth uint) (*storage.StoredObject, error)
}

// UploadEvent 上传完成事件
type UploadEvent struct {
	Filename     string
	UploaderID   uint
	FileURL      string
	ObjectKey    string
	ThumbnailURL string
	ThumbnailKey string
}

// UploadFile 待存储的上传文件
type UploadFile struct {
	Name    string
	Content []byte
}

// UploadService 上传服务
type UploadService struct {
	records ImageRecordWriter
	prompts PromptReader
	bucket  ObjectStore
	cfg     *config.Config
	logger  logrus.FieldLogger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewUploadService 创建上传服务
func NewUploadService(records ImageRecordWriter, prompts PromptReader, bucket ObjectStore, cfg *config.Config, logger logrus.FieldLogger) *UploadService {
	return &UploadService{
		records: records,
		prompts: prompts,
		bucket:  bucket,
		cfg:     cfg,
		logger:  logger,
		sleep:   sleepContext,
	}
}

// WithSleep 替换重试等待函数
func (s *UploadService) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *UploadService {
	s.sleep = sleep
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// OnUploadComplete 处理上传完成事件，关联提示词后写入图片记录
func (s *UploadService) OnUploadComplete(ctx context.Context, event *UploadEvent) (*models.ImageRecord, error) {
	record := &models.ImageRecord{
		Name:      event.Filename,
		URL:       event.FileURL,
		ObjectKey: event.ObjectKey,
		UserID:    event.UploaderID,
	}
	if event.ThumbnailURL != "" {
		record.ThumbnailURL = &event.ThumbnailURL
	}
	if event.ThumbnailKey != "" {
		record.ThumbnailKey = &event.ThumbnailKey
	}

	entry := s.logger.WithFields(logrus.Fields{
		"user_id":  event.UploaderID,
		"filename": event.Filename,
	})

	modelID, timestamp, err := filename_codec.Decode(event.Filename)
	if err != nil {
		entry.WithError(err).Debug("非生成图片，跳过提示词关联")
	} else if pending := s.lookupPrompt(ctx, entry, event.UploaderID, timestamp); pending != nil {
		prompt := pending.Prompt
		record.Prompt = &prompt
		record.Model = &modelID
		if pending.CustomName != "" {
			record.Name = pending.CustomName
		}
	} else {
		entry.Warn("未找到提示词，图片记录不含生成信息")
	}

	if err := s.records.Create(record); err != nil {
		return nil, fmt.Errorf("保存图片记录失败: %w", err)
	}

	entry.WithFields(logrus.Fields{
		"image_id":  record.ID,
		"generated": record.IsGenerated(),
	}).Info("图片记录已创建")

	return record, nil
}

// lookupPrompt 有限次重试查询提示词，第i次查询前等待 i*unit
func (s *UploadService) lookupPrompt(ctx context.Context, entry logrus.FieldLogger, userID uint, timestamp int64) *PendingPrompt {
	attempts := s.cfg.PromptStorage.RetryAttempts
	unit := s.cfg.PromptStorage.GetRetryUnit()

	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := s.sleep(ctx, time.Duration(i)*unit); err != nil {
				entry.WithError(err).Warn("提示词查询被取消")
				return nil
			}
		}

		pending, err := s.prompts.Get(ctx, userID, timestamp)
		if err == nil {
			return pending
		}

		e := entry.WithFields(logrus.Fields{
			"attempt":   i + 1,
			"timestamp": timestamp,
		})
		if errors.Is(err, ErrPromptNotFound) {
			e.Info("提示词暂未写入")
		} else {
			e.WithError(err).Warn("查询提示词失败")
		}
	}

	return nil
}

// StoreFiles 存储上传文件并逐个触发上传完成处理
func (s *UploadService) StoreFiles(ctx context.Context, userID uint, files []UploadFile) ([]models.ImageRecord, []dto.UploadFailure, error) {
	if len(files) == 0 {
		return nil, nil, validationError("未选择文件")
	}
	if len(files) > s.cfg.Upload.MaxFileCount {
		return nil, nil, validationError("单次最多上传 %d 个文件", s.cfg.Upload.MaxFileCount)
	}

	records := make([]models.ImageRecord, 0, len(files))
	failures := make([]dto.UploadFailure, 0)

	for _, file := range files {
		record, err := s.storeOne(ctx, userID, file)
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"user_id":  userID,
				"filename": file.Name,
			}).WithError(err).Warn("文件上传失败")
			failures = append(failures, dto.UploadFailure{Filename: file.Name, Error: err.Error()})
			continue
		}
		records = append(records, *record)
	}

	return records, failures, nil
}

func (s *UploadService) storeOne(ctx context.Context, userID uint, file UploadFile) (*models.ImageRecord, error) {
	if file.Name == "" {
		return nil, validationError("文件名不能为空")
	}
	if int64(len(file.Content)) > s.cfg.Upload.GetMaxFileSize() {
		return nil, validationError("文件大小不能超过 %dMB", s.cfg.Upload.MaxFileSizeMB)
	}

	obj, err := s.bucket.Put(file.Content)
	if err != nil {
		if errors.Is(err, storage.ErrNotImage) {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, err
	}

	event := &UploadEvent{
		Filename:   file.Name,
		UploaderID: userID,
		FileURL:    obj.URL,
		ObjectKey:  obj.Key,
	}

	if s.cfg.Upload.ThumbnailWidth > 0 {
		thumb, err := s.bucket.PutThumbnail(obj.Key, file.Content, uint(s.cfg.Upload.ThumbnailWidth))
		if err != nil {
			s.logger.WithField("object_key", obj.Key).WithError(err).Debug("生成缩略图失败")
		} else {
			event.ThumbnailURL = thumb.URL
			event.ThumbnailKey = thumb.Key
		}
	}

	return s.OnUploadComplete(ctx, event)
}
