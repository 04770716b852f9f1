package dto

// UploadCompleteRequest 存储服务上传完成回调
type UploadCompleteRequest struct {
	Filename     string `json:"filename" binding:"required"`
	UploaderID   uint   `json:"uploader_id" binding:"required"`
	FileURL      string `json:"file_url" binding:"required"`
	ObjectKey    string `json:"object_key"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// UploadFailure 单个文件上传失败
type UploadFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// UploadResponse 上传响应
type UploadResponse struct {
	Images   interface{}     `json:"images"`
	Failures []UploadFailure `json:"failures"`
}
