package services

import (
	"strings"
	"time"

	"github.com/mkarlsen/userdeck/internal/models"
	"github.com/mkarlsen/userdeck/pkg/logger"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// SearchFilter is the closed set of supported directory filters. Absent or
// zero values impose no constraint; IsLocked distinguishes "no filter" (nil)
// from an explicit false.
type SearchFilter struct {
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	IsLocked    *bool      `json:"is_locked"`
	CreatedFrom *time.Time `json:"created_from"`
	CreatedTo   *time.Time `json:"created_to"`
}

// SearchService provides read-only search, filter and pagination over the
// user directory.
type SearchService struct {
	db *gorm.DB
}

func NewSearchService(db *gorm.DB) *SearchService {
	return &SearchService{db: db}
}

// NormalizePage clamps skip and limit into their valid ranges: skip >= 0,
// limit in (0, 100].
func NormalizePage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return skip, limit
}

// Search applies the filter conjunctively and returns the total matching
// count together with one page of users. The count is computed from the same
// predicate chain as the page, before skip/limit. A skip beyond the total
// yields an empty page with the true total. The count and page are two
// queries without a shared transaction, so they may diverge slightly under
// concurrent writes.
func (s *SearchService) Search(filter SearchFilter, skip, limit int) (int64, []models.User, error) {
	skip, limit = NormalizePage(skip, limit)

	query := s.db.Model(&models.User{})

	if filter.Username != "" {
		query = query.Where("LOWER(nickname) LIKE ?", "%"+strings.ToLower(filter.Username)+"%")
	}
	if filter.Email != "" {
		query = query.Where("LOWER(email) LIKE ?", "%"+strings.ToLower(filter.Email)+"%")
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.IsLocked != nil {
		query = query.Where("is_locked = ?", *filter.IsLocked)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Warn().Err(err).Msg("user search count failed")
		return 0, []models.User{}, nil
	}

	var users []models.User
	if err := query.Order("created_at ASC").Offset(skip).Limit(limit).Find(&users).Error; err != nil {
		logger.Warn().Err(err).Msg("user search page failed")
		return 0, []models.User{}, nil
	}

	return total, users, nil
}
