package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"gen-gallery/internal/config"
	"gen-gallery/internal/dto"
	"gen-gallery/internal/middleware"
	"gen-gallery/internal/service"
	"gen-gallery/internal/storage"
	"gen-gallery/internal/utils"

	"github.com/gin-gonic/gin"
)

// UploadHandler 上传处理器
type UploadHandler struct {
	uploadService *service.UploadService
	bucket        *storage.LocalBucket
	cfg           *config.UploadConfig
}

// NewUploadHandler 创建上传处理器
func NewUploadHandler(uploadService *service.UploadService, bucket *storage.LocalBucket, cfg *config.UploadConfig) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
		bucket:        bucket,
		cfg:           cfg,
	}
}

// Upload 上传图片到图库
// 表单字段 files 为文件，可选的 names 与 files 一一对应，用于覆盖文件名
// @Summary 上传图片
// @Tags 图库
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Success 200 {object} utils.Response{data=dto.UploadResponse}
// @Router /api/uploads [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.Unauthorized(c, "未认证")
		return
	}

	maxBody := int64(h.cfg.MaxFileCount)*h.cfg.GetMaxFileSize() + 1<<20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)

	form, err := c.MultipartForm()
	if err != nil {
		utils.BadRequest(c, "无效的上传表单")
		return
	}

	headers := form.File["files"]
	names := form.Value["names"]

	files := make([]service.UploadFile, 0, len(headers))
	for i, fh := range headers {
		name := fh.Filename
		if i < len(names) && names[i] != "" {
			name = names[i]
		}

		content, err := h.readFile(fh)
		if err != nil {
			utils.BadRequest(c, fmt.Sprintf("%s: %v", name, err))
			return
		}
		files = append(files, service.UploadFile{Name: name, Content: content})
	}

	records, failures, err := h.uploadService.StoreFiles(c.Request.Context(), userID, files)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(records) == 0 && len(failures) > 0 {
		utils.BadRequest(c, failures[0].Error)
		return
	}

	utils.SuccessWithMessage(c, fmt.Sprintf("上传成功 %d 个文件", len(records)), dto.UploadResponse{
		Images:   records,
		Failures: failures,
	})
}

// readFile 读取上传文件，超过大小上限时只多读一个字节
func (h *UploadHandler) readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, h.cfg.GetMaxFileSize()+1))
}

// Complete 存储服务上传完成回调
// @Summary 上传完成回调
// @Tags 内部接口
// @Accept json
// @Produce json
// @Param request body dto.UploadCompleteRequest true "上传事件"
// @Success 200 {object} utils.Response{data=models.ImageRecord}
// @Router /api/uploads/complete [post]
func (h *UploadHandler) Complete(c *gin.Context) {
	var req dto.UploadCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	objectKey := req.ObjectKey
	if objectKey == "" {
		objectKey = h.bucket.KeyFromURL(req.FileURL)
	}

	record, err := h.uploadService.OnUploadComplete(c.Request.Context(), &service.UploadEvent{
		Filename:     req.Filename,
		UploaderID:   req.UploaderID,
		FileURL:      req.FileURL,
		ObjectKey:    objectKey,
		ThumbnailURL: req.ThumbnailURL,
		ThumbnailKey: h.bucket.KeyFromURL(req.ThumbnailURL),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, record)
}
