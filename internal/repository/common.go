package repository

import (
	"strings"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// paginate 分页参数归一化
func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return query.Offset((page - 1) * pageSize).Limit(pageSize)
}

// orderBy 解析 ordering 参数，仅允许白名单字段，"-" 前缀表示倒序
// allowed: 参数名 -> 列名
func orderBy(ordering string, allowed map[string]string, fallback string) string {
	if ordering == "" {
		return fallback
	}

	var clauses []string
	for _, field := range strings.Split(ordering, ",") {
		field = strings.TrimSpace(field)
		desc := strings.HasPrefix(field, "-")
		column, ok := allowed[strings.TrimPrefix(field, "-")]
		if !ok {
			continue
		}
		if desc {
			clauses = append(clauses, column+" DESC")
		} else {
			clauses = append(clauses, column+" ASC")
		}
	}

	if len(clauses) == 0 {
		return fallback
	}
	return strings.Join(clauses, ", ")
}

// likePattern 包含匹配
func likePattern(s string) string {
	return "%" + s + "%"
}
