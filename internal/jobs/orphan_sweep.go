package jobs

import (
	"context"
	"fmt"
	"time"

	"gen-gallery/internal/storage"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ObjectLister 可列举和删除对象的存储
type ObjectLister interface {
	List() ([]storage.ObjectInfo, error)
	Delete(key string) error
}

// KeyReferencer 提供仍被图片记录引用的对象键
type KeyReferencer interface {
	ListReferencedKeys() (map[string]struct{}, error)
}

// OrphanSweeper 清理没有图片记录引用的存储对象
type OrphanSweeper struct {
	bucket ObjectLister
	refs   KeyReferencer
	grace  time.Duration
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewOrphanSweeper 创建孤儿对象清理任务
func NewOrphanSweeper(bucket ObjectLister, refs KeyReferencer, grace time.Duration, logger logrus.FieldLogger) *OrphanSweeper {
	return &OrphanSweeper{
		bucket: bucket,
		refs:   refs,
		grace:  grace,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock 替换时间来源
func (s *OrphanSweeper) WithClock(now func() time.Time) *OrphanSweeper {
	s.now = now
	return s
}

// Sweep 删除超过保留时长且未被引用的对象，返回删除数量
func (s *OrphanSweeper) Sweep(ctx context.Context) (int, error) {
	referenced, err := s.refs.ListReferencedKeys()
	if err != nil {
		return 0, fmt.Errorf("查询引用对象失败: %w", err)
	}

	objects, err := s.bucket.List()
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-s.grace)
	removed := 0
	for _, obj := range objects {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if _, ok := referenced[obj.Key]; ok || obj.ModTime.After(cutoff) {
			continue
		}
		if err := s.bucket.Delete(obj.Key); err != nil {
			s.logger.WithField("object_key", obj.Key).WithError(err).Warn("删除孤儿对象失败")
			continue
		}
		removed++
	}

	return removed, nil
}

// ScheduleOrphanSweep 按cron表达式定期执行清理，ctx结束时停止
func ScheduleOrphanSweep(ctx context.Context, spec string, sweeper *OrphanSweeper) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		removed, err := sweeper.Sweep(ctx)
		if err != nil {
			sweeper.logger.WithError(err).Error("孤儿对象清理失败")
			return
		}
		sweeper.logger.WithField("removed", removed).Info("孤儿对象清理完成")
	})
	if err != nil {
		return nil, fmt.Errorf("无效的定时任务表达式 %q: %w", spec, err)
	}
	c.Start()

	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return c, nil
}
