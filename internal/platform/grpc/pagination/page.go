// Package pagination normalizes list request paging parameters.
package pagination

import (
	"fmt"
	"strings"
)

// PageSizeConfig configures page size normalization.
type PageSizeConfig struct {
	Default int
	Max     int
}

// OrderByConfig configures order_by validation.
type OrderByConfig struct {
	Default string
	Allowed []string
}

// ClampPageSize applies defaults and limits for page sizes.
func ClampPageSize(value int32, cfg PageSizeConfig) int {
	pageSize := int(value)
	if pageSize <= 0 {
		pageSize = cfg.Default
	}
	if cfg.Max > 0 && pageSize > cfg.Max {
		pageSize = cfg.Max
	}
	if pageSize <= 0 {
		pageSize = 1
	}
	return pageSize
}

// NormalizeOrderBy validates order_by and applies defaults. Whitespace and
// case are folded so "start_at DESC" matches "start_at desc".
func NormalizeOrderBy(orderBy string, cfg OrderByConfig) (string, error) {
	normalized := strings.ToLower(strings.Join(strings.Fields(orderBy), " "))
	if normalized == "" {
		return cfg.Default, nil
	}
	for _, allowed := range cfg.Allowed {
		if normalized == allowed {
			return normalized, nil
		}
	}
	return "", fmt.Errorf("invalid order_by: %s", orderBy)
}
