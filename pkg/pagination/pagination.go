package pagination

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/safarides/safar-backend/pkg/common"
)

const (
	// DefaultLimit is the default page size.
	DefaultLimit = 20
	// UserMaxLimit caps page size for user-facing listings.
	UserMaxLimit = 50
	// AdminMaxLimit caps page size for admin listings.
	AdminMaxLimit = 100
)

// Params holds validated page/limit query parameters.
type Params struct {
	Page  int
	Limit int
}

// Offset returns the SQL offset for the page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Parse extracts page and limit from the request, clamping limit to maxLimit.
func Parse(c *gin.Context, maxLimit int) Params {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return Params{Page: page, Limit: limit}
}

// BuildMeta creates pagination metadata for the response envelope.
func BuildMeta(p Params, total int64) *common.Meta {
	meta := &common.Meta{
		Page:  p.Page,
		Limit: p.Limit,
		Total: total,
	}
	if p.Limit > 0 {
		meta.TotalPages = int(math.Ceil(float64(total) / float64(p.Limit)))
	}
	return meta
}
