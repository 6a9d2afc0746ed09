package httputil

import (
	"fmt"

	"github.com/gin-gonic/gin"
	validation "github.com/jellydator/validation"
)

type pageQuery struct {
	Offset *int `form:"offset" json:"offset"`
	Limit  *int `form:"limit"  json:"limit"`
}

// ParsePagination reads the offset and limit query parameters. Offset defaults to 0 and
// limit to defaultLimit; limit must lie in [1, maxLimit].
func ParsePagination(c *gin.Context, defaultLimit, maxLimit int) (offset, limit int, err error) {
	var q pageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return 0, 0, fmt.Errorf("invalid pagination parameters: %w", err)
	}

	err = validation.ValidateStruct(&q,
		validation.Field(&q.Offset, validation.Min(0)),
		validation.Field(&q.Limit, validation.Min(1), validation.Max(maxLimit)),
	)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid pagination parameters: %w", err)
	}

	limit = defaultLimit
	if q.Limit != nil {
		limit = *q.Limit
	}
	if q.Offset != nil {
		offset = *q.Offset
	}
	return offset, limit, nil
}
