package services

import (
	"time"

	"github.com/mkarlsen/userdeck/internal/models"
	"github.com/mkarlsen/userdeck/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

var auditDB *gorm.DB

// InitAuditLogger wires the package-level audit writer to the database.
func InitAuditLogger(db *gorm.DB) {
	auditDB = db
}

// LogAudit records an account lifecycle event. Failures to write the audit
// row are swallowed; auditing must never break the operation it describes.
func LogAudit(level, action, message, userID, ip, userAgent string) {
	if auditDB == nil {
		return
	}

	entry := &models.AuditLog{
		Level:     level,
		Action:    action,
		Message:   message,
		UserID:    userID,
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: time.Now(),
	}
	if err := auditDB.Create(entry).Error; err != nil {
		logger.Warn().Err(err).Str("action", action).Msg("failed to write audit log")
	}
}

// AuditService lists and prunes audit log entries.
type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

type AuditListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Level    string `form:"level"`
	Action   string `form:"action"`
	UserID   string `form:"user_id"`
}

type AuditListResponse struct {
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Items    []models.AuditLog `json:"items"`
}

func (s *AuditService) List(req *AuditListRequest) (*AuditListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	var entries []models.AuditLog
	var total int64

	query := s.db.Model(&models.AuditLog{})

	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}
	if req.UserID != "" {
		query = query.Where("user_id = ?", req.UserID)
	}

	query.Count(&total)

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC").Find(&entries).Error; err != nil {
		return nil, err
	}

	return &AuditListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    entries,
	}, nil
}

// CleanupOld deletes audit entries older than retentionDays.
func (s *AuditService) CleanupOld(retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	return result.RowsAffected, result.Error
}

var auditCron *cron.Cron

// StartAuditCleanupScheduler prunes old audit entries nightly at 03:00.
func StartAuditCleanupScheduler(db *gorm.DB, retentionDays int) {
	if retentionDays <= 0 {
		logger.Infof("[Audit] Cleanup disabled (retention_days <= 0)")
		return
	}

	service := NewAuditService(db)
	auditCron = cron.New()

	_, err := auditCron.AddFunc("0 3 * * *", func() {
		deleted, err := service.CleanupOld(retentionDays)
		if err != nil {
			logger.Errorf("[Audit] Cleanup failed: %v", err)
			return
		}
		if deleted > 0 {
			logger.Infof("[Audit] Cleaned up %d entries older than %d days", deleted, retentionDays)
		}
	})
	if err != nil {
		logger.Errorf("[Audit] Failed to schedule cleanup: %v", err)
		return
	}

	auditCron.Start()
	logger.Infof("[Audit] Cleanup scheduler started (retention %d days)", retentionDays)
}

// StopAuditCleanupScheduler stops the nightly pruning job.
func StopAuditCleanupScheduler() {
	if auditCron != nil {
		auditCron.Stop()
	}
}
