package dto

// PageQuery 分页参数
type PageQuery struct {
	Page     int `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize int `form:"page_size,default=20" binding:"omitempty,min=1,max=100"`
}

// PageResult 分页结果
type PageResult[T any] struct {
	List     []T   `json:"list"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// NewPageResult 构造分页结果，list 为 nil 时返回空数组
func NewPageResult[T any](list []T, total int64, q PageQuery) *PageResult[T] {
	if list == nil {
		list = []T{}
	}
	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	return &PageResult[T]{List: list, Total: total, Page: page, PageSize: size}
}

// UploadResponse 文件上传结果
type UploadResponse struct {
	URL string `json:"url"`
}
