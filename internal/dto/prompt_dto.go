package dto

import "encoding/json"

// StorePromptRequest 暂存提示词请求
type StorePromptRequest struct {
	Prompt     string      `json:"prompt" binding:"required"`
	Timestamp  json.Number `json:"timestamp" binding:"required"`
	CustomName string      `json:"customName"`
}

// PromptLookupResponse 提示词查询响应
type PromptLookupResponse struct {
	Success    bool   `json:"success"`
	Prompt     string `json:"prompt"`
	CustomName string `json:"customName,omitempty"`
}
