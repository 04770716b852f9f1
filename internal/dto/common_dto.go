package dto

// MaxPage 允许的最大页码，避免偏移量溢出
const MaxPage = 100000

// PaginationQuery 分页参数
type PaginationQuery struct {
	Page    int `form:"page"`
	PerPage int `form:"per_page"`
}

// Normalize 规范化分页参数，返回偏移量
func (q *PaginationQuery) Normalize(defaultPerPage, maxPerPage int) int {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.PerPage < 1 {
		q.PerPage = defaultPerPage
	}
	if q.PerPage > maxPerPage {
		q.PerPage = maxPerPage
	}
	return (q.Page - 1) * q.PerPage
}

// ModelListResponse 模型列表响应
type ModelListResponse struct {
	Models       []string `json:"models"`
	DefaultModel string   `json:"default_model"`
	MaxPerBatch  int      `json:"max_per_batch"`
}
