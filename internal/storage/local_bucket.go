package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
)

var (
	// ErrNotImage 内容不是支持的图片格式
	ErrNotImage = errors.New("文件不是支持的图片格式")
	// ErrInvalidKey 非法的对象键
	ErrInvalidKey = errors.New("非法的对象键")
	// ErrImageTooLarge 图片像素数超过缩略图处理上限
	ErrImageTooLarge = errors.New("图片尺寸超过缩略图处理上限")
)

// allowedImageTypes 允许上传的图片类型
var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

const thumbnailSuffix = "_thumb.jpg"

// DefaultMaxThumbnailPixels 生成缩略图时允许解码的最大像素数
const DefaultMaxThumbnailPixels int64 = 40_000_000

// StoredObject 已存储对象
type StoredObject struct {
	Key string
	URL string
}

// ObjectInfo 对象信息
type ObjectInfo struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// LocalBucket 本地磁盘对象存储，通过 /files/ 对外提供访问
type LocalBucket struct {
	root       string
	publicBase string
	maxPixels  int64
}

// NewLocalBucket 创建本地存储
func NewLocalBucket(root, publicBaseURL string) (*LocalBucket, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &LocalBucket{
		root:       root,
		publicBase: strings.TrimRight(publicBaseURL, "/"),
		maxPixels:  DefaultMaxThumbnailPixels,
	}, nil
}

// WithMaxThumbnailPixels 设置缩略图解码像素上限，不大于0时使用默认值
func (b *LocalBucket) WithMaxThumbnailPixels(maxPixels int64) *LocalBucket {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxThumbnailPixels
	}
	b.maxPixels = maxPixels
	return b
}

// Root 存储根目录
func (b *LocalBucket) Root() string {
	return b.root
}

// DetectImage 根据内容识别图片类型
func DetectImage(content []byte) (string, error) {
	mt := mimetype.Detect(content)
	for m := mt; m != nil; m = m.Parent() {
		if _, ok := allowedImageTypes[m.String()]; ok {
			return m.String(), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotImage, mt.String())
}

// Put 存储图片，对象键为随机UUID
func (b *LocalBucket) Put(content []byte) (*StoredObject, error) {
	mime, err := DetectImage(content)
	if err != nil {
		return nil, err
	}

	key := uuid.NewString() + allowedImageTypes[mime]
	if err := os.WriteFile(filepath.Join(b.root, key), content, 0644); err != nil {
		return nil, fmt.Errorf("写入文件失败: %w", err)
	}

	return &StoredObject{Key: key, URL: b.URL(key)}, nil
}

// PutThumbnail 为已存储图片生成JPEG缩略图
// 先读取图片头，像素数超过上限时不解码
func (b *LocalBucket) PutThumbnail(key string, content []byte, maxWidth uint) (*StoredObject, error) {
	header, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("解码图片失败: %w", err)
	}
	if pixels := int64(header.Width) * int64(header.Height); pixels > b.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, header.Width, header.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("解码图片失败: %w", err)
	}

	thumbnail := resize.Thumbnail(maxWidth, maxWidth, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumbnail, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("编码缩略图失败: %w", err)
	}

	thumbKey := strings.TrimSuffix(key, filepath.Ext(key)) + thumbnailSuffix
	if err := os.WriteFile(filepath.Join(b.root, thumbKey), buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("写入缩略图失败: %w", err)
	}

	return &StoredObject{Key: thumbKey, URL: b.URL(thumbKey)}, nil
}

// Delete 删除对象，对象不存在时不报错
func (b *LocalBucket) Delete(key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	if err := os.Remove(filepath.Join(b.root, key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("删除文件失败: %w", err)
	}
	return nil
}

// List 列出所有对象
func (b *LocalBucket) List() ([]ObjectInfo, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, fmt.Errorf("读取存储目录失败: %w", err)
	}

	objects := make([]ObjectInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		objects = append(objects, ObjectInfo{
			Key:     entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return objects, nil
}

// URL 对象的公开访问地址
func (b *LocalBucket) URL(key string) string {
	return b.publicBase + "/files/" + key
}

// KeyFromURL 从公开地址解析对象键，非本存储地址返回空
func (b *LocalBucket) KeyFromURL(url string) string {
	prefix := b.publicBase + "/files/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	key := strings.TrimPrefix(url, prefix)
	if !validKey(key) {
		return ""
	}
	return key
}

func validKey(key string) bool {
	return key != "" && key != "." && key != ".." && !strings.ContainsAny(key, `/\`)
}
