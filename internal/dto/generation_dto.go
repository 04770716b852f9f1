package dto

// GenerateRequest 单模型生成请求
type GenerateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	Model  string `json:"model"`
}

// GenerateResponse 单模型生成响应
type GenerateResponse struct {
	Image string `json:"image"`
}

// BatchGenerateRequest 多模型生成请求
type BatchGenerateRequest struct {
	Prompt string   `json:"prompt" binding:"required"`
	Models []string `json:"models" binding:"required,min=1,unique"`
}

// BatchImage 单个模型的生成结果
type BatchImage struct {
	Model     string `json:"model"`
	Image     string `json:"image"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// BatchError 单个模型的失败原因
type BatchError struct {
	Model string `json:"model"`
	Error string `json:"error"`
}

// BatchGenerateResponse 多模型生成响应
type BatchGenerateResponse struct {
	Images []BatchImage `json:"images"`
	Errors []BatchError `json:"errors"`
}
