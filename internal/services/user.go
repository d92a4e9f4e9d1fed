package services

import (
	"errors"
	"strings"
	"time"

	"github.com/mkarlsen/userdeck/internal/config"
	"github.com/mkarlsen/userdeck/internal/models"
	"github.com/mkarlsen/userdeck/internal/utils"
	"github.com/mkarlsen/userdeck/pkg/logger"
	"gorm.io/gorm"
)

// UserService owns the account lifecycle: registration, login with lockout
// accounting, verification, password reset, anonymization. It is the sole
// writer of authentication-related fields.
type UserService struct {
	db         *gorm.DB
	authCfg    *config.AuthConfig
	emailQueue EmailQueue
}

func NewUserService(db *gorm.DB, authCfg *config.AuthConfig, emailQueue EmailQueue) *UserService {
	return &UserService{
		db:         db,
		authCfg:    authCfg,
		emailQueue: emailQueue,
	}
}

type CreateUserRequest struct {
	Email              string `json:"email" binding:"required"`
	Password           string `json:"password" binding:"required"`
	Nickname           string `json:"nickname"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Bio                string `json:"bio"`
	ProfilePictureURL  string `json:"profile_picture_url"`
	LinkedinProfileURL string `json:"linkedin_profile_url"`
	GithubProfileURL   string `json:"github_profile_url"`
}

type UpdateUserRequest struct {
	Email              *string `json:"email"`
	Nickname           *string `json:"nickname"`
	Password           *string `json:"password"`
	FirstName          *string `json:"first_name"`
	LastName           *string `json:"last_name"`
	Bio                *string `json:"bio"`
	ProfilePictureURL  *string `json:"profile_picture_url"`
	LinkedinProfileURL *string `json:"linkedin_profile_url"`
	GithubProfileURL   *string `json:"github_profile_url"`
	Role               *string `json:"role"`
	IsProfessional     *bool   `json:"is_professional"`
}

// Create registers a new account. The first user ever created is assigned
// the ADMIN role; everyone else starts as ANONYMOUS until their email is
// verified. Exactly one row is inserted and one verification email dispatch
// is attempted; the dispatch never fails the registration.
func (s *UserService) Create(req *CreateUserRequest) (*models.User, error) {
	if !utils.ValidateEmail(req.Email) {
		return nil, ErrInvalidEmail
	}
	if err := utils.ValidatePassword(req.Password, s.authCfg.Password); err != nil {
		return nil, ErrWeakPassword
	}
	if err := validateProfileURLs(req.ProfilePictureURL, req.LinkedinProfileURL, req.GithubProfileURL); err != nil {
		return nil, err
	}
	if len(req.Bio) > 500 {
		return nil, ErrBioTooLong
	}

	isFirstUser, err := s.IsFirstUser()
	if err != nil {
		return nil, err
	}

	if existing, _ := s.GetByEmail(req.Email); existing != nil {
		return nil, ErrDuplicateEmail
	}

	nickname := req.Nickname
	if nickname != "" {
		if _, err := utils.ValidateNickname(nickname); err != nil {
			return nil, ErrInvalidNickname
		}
		if existing, _ := s.GetByNickname(nickname); existing != nil {
			return nil, ErrDuplicateNickname
		}
	} else {
		nickname, err = s.generateUniqueNickname()
		if err != nil {
			return nil, err
		}
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	token, err := utils.GenerateVerificationToken()
	if err != nil {
		return nil, err
	}

	role := models.RoleAnonymous
	if isFirstUser {
		role = models.RoleAdmin
	}

	user := models.User{
		Email:              req.Email,
		Nickname:           nickname,
		HashedPassword:     hashed,
		Role:               role,
		VerificationToken:  token,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Bio:                req.Bio,
		ProfilePictureURL:  req.ProfilePictureURL,
		LinkedinProfileURL: req.LinkedinProfileURL,
		GithubProfileURL:   req.GithubProfileURL,
	}

	if err := s.db.Create(&user).Error; err != nil {
		// The unique indexes are the authoritative duplicate guard; the
		// pre-checks above only cover the common case.
		return nil, s.translateDuplicate(err, user.Email, user.Nickname)
	}

	if err := s.emailQueue.Enqueue(&VerificationEmailTask{
		UserID:   user.ID,
		Email:    user.Email,
		Nickname: user.Nickname,
		Token:    token,
	}); err != nil {
		logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to enqueue verification email")
	}

	LogAudit("info", "user.register", "user registered", user.ID, "", "")
	return &user, nil
}

// Update applies a partial patch to a user. An empty patch is rejected.
// Returns the refreshed entity reflecting store state after the write.
func (s *UserService) Update(id string, req *UpdateUserRequest) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	updates := make(map[string]interface{})

	if req.Email != nil {
		if !utils.ValidateEmail(*req.Email) {
			return nil, ErrInvalidEmail
		}
		if existing, _ := s.GetByEmail(*req.Email); existing != nil && existing.ID != id {
			return nil, ErrDuplicateEmail
		}
		updates["email"] = *req.Email
	}
	if req.Nickname != nil {
		if _, err := utils.ValidateNickname(*req.Nickname); err != nil {
			return nil, ErrInvalidNickname
		}
		if existing, _ := s.GetByNickname(*req.Nickname); existing != nil && existing.ID != id {
			return nil, ErrDuplicateNickname
		}
		updates["nickname"] = *req.Nickname
	}
	if req.Password != nil {
		if err := utils.ValidatePassword(*req.Password, s.authCfg.Password); err != nil {
			return nil, ErrWeakPassword
		}
		hashed, err := utils.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		updates["hashed_password"] = hashed
	}
	if req.Bio != nil {
		if len(*req.Bio) > 500 {
			return nil, ErrBioTooLong
		}
		updates["bio"] = *req.Bio
	}
	if req.ProfilePictureURL != nil {
		if *req.ProfilePictureURL == "" {
			return nil, ErrInvalidProfilePicture
		}
		if _, err := utils.ValidateURL(*req.ProfilePictureURL); err != nil {
			return nil, ErrInvalidProfilePicture
		}
		updates["profile_picture_url"] = *req.ProfilePictureURL
	}
	if req.LinkedinProfileURL != nil {
		if _, err := utils.ValidateURL(*req.LinkedinProfileURL); err != nil {
			return nil, ErrInvalidURL
		}
		updates["linkedin_profile_url"] = *req.LinkedinProfileURL
	}
	if req.GithubProfileURL != nil {
		if _, err := utils.ValidateURL(*req.GithubProfileURL); err != nil {
			return nil, ErrInvalidURL
		}
		updates["github_profile_url"] = *req.GithubProfileURL
	}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			return nil, ErrInvalidRole
		}
		updates["role"] = *req.Role
	}
	if req.IsProfessional != nil {
		updates["is_professional"] = *req.IsProfessional
	}

	if len(updates) == 0 {
		return nil, ErrEmptyUpdate
	}

	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		return nil, s.translateDuplicate(err, user.Email, user.Nickname)
	}

	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Delete removes a user row. Returns false when the id does not resolve.
func (s *UserService) Delete(id string) (bool, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if err := s.db.Delete(&user).Error; err != nil {
		return false, err
	}
	return true, nil
}

// Login authenticates by email and password. A wrong password increments the
// failed-attempt counter and locks the account once the configured maximum is
// reached; the counter is persisted either way. The lockout itself is a state
// transition, not an error: the next attempt against the locked account is
// the one refused with ErrAccountLocked.
func (s *UserService) Login(email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}
	if user.IsLocked {
		LogAudit("warning", "user.login_refused", "login refused for locked account", user.ID, "", "")
		return nil, ErrAccountLocked
	}

	if !utils.CheckPassword(password, user.HashedPassword) {
		user.FailedLoginAttempts++
		locked := user.FailedLoginAttempts >= s.authCfg.MaxLoginAttempts
		updates := map[string]interface{}{
			"failed_login_attempts": user.FailedLoginAttempts,
		}
		if locked {
			updates["is_locked"] = true
		}
		if err := s.db.Model(&user).Updates(updates).Error; err != nil {
			return nil, err
		}
		if locked {
			LogAudit("warning", "user.locked", "account locked after repeated failed logins", user.ID, "", "")
		}
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	if err := s.db.Model(&user).Updates(map[string]interface{}{
		"failed_login_attempts": 0,
		"last_login_at":         now,
	}).Error; err != nil {
		return nil, err
	}

	user.FailedLoginAttempts = 0
	user.LastLoginAt = &now
	return &user, nil
}

// VerifyEmail redeems a verification token. On success the email is marked
// verified, the token cleared and the account promoted from ANONYMOUS to
// AUTHENTICATED. A wrong token returns false without mutation.
func (s *UserService) VerifyEmail(id, token string) (bool, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if token == "" || user.VerificationToken != token {
		return false, nil
	}

	updates := map[string]interface{}{
		"email_verified":     true,
		"verification_token": "",
	}
	if user.Role == models.RoleAnonymous {
		updates["role"] = models.RoleAuthenticated
	}

	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		return false, err
	}

	LogAudit("info", "user.verified", "email verified", user.ID, "", "")
	return true, nil
}

// ResetPassword stores a new password, clears the lock and resets the
// failed-attempt counter. Returns false when the user does not exist.
func (s *UserService) ResetPassword(id, newPassword string) (bool, error) {
	if err := utils.ValidatePassword(newPassword, s.authCfg.Password); err != nil {
		return false, ErrWeakPassword
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return false, err
	}

	if err := s.db.Model(&user).Updates(map[string]interface{}{
		"hashed_password":       hashed,
		"failed_login_attempts": 0,
		"is_locked":             false,
	}).Error; err != nil {
		return false, err
	}

	LogAudit("info", "user.password_reset", "password reset", user.ID, "", "")
	return true, nil
}

// Unlock clears the lock and resets the counter. Returns false when the user
// is absent or not locked.
func (s *UserService) Unlock(id string) (bool, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}

	if !user.IsLocked {
		return false, nil
	}

	if err := s.db.Model(&user).Updates(map[string]interface{}{
		"is_locked":             false,
		"failed_login_attempts": 0,
	}).Error; err != nil {
		return false, err
	}

	LogAudit("info", "user.unlocked", "account unlocked", user.ID, "", "")
	return true, nil
}

// Anonymize irreversibly scrubs personally identifying fields. The scrubbed
// values are derived from the immutable user id, so repeated calls converge
// on the same terminal state.
func (s *UserService) Anonymize(id string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	user.Anonymize()
	if err := s.db.Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"email":                user.Email,
		"nickname":             user.Nickname,
		"first_name":           "",
		"last_name":            "",
		"bio":                  "",
		"profile_picture_url":  "",
		"linkedin_profile_url": "",
		"github_profile_url":   "",
	}).Error; err != nil {
		return nil, err
	}

	LogAudit("info", "user.anonymized", "account anonymized", user.ID, "", "")
	return &user, nil
}

// GetByID fetches a user by id, returning ErrUserNotFound when absent.
func (s *UserService) GetByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail fetches a user by email. Absent users and read failures both
// yield a nil user; failures are logged.
func (s *UserService) GetByEmail(email string) (*models.User, error) {
	return s.fetchOne("email = ?", email)
}

// GetByNickname fetches a user by nickname with the same relaxed semantics
// as GetByEmail.
func (s *UserService) GetByNickname(nickname string) (*models.User, error) {
	return s.fetchOne("nickname = ?", nickname)
}

func (s *UserService) fetchOne(query string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, query, arg).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn().Err(err).Msg("user lookup failed")
		}
		return nil, nil
	}
	return &user, nil
}

// Count returns the total number of users.
func (s *UserService) Count() (int64, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// IsFirstUser reports whether the user table is empty. The ADMIN
// auto-assignment rule fires only in that case.
func (s *UserService) IsFirstUser() (bool, error) {
	count, err := s.Count()
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// generateUniqueNickname draws random handles until one is free. Collisions
// are rare given the keyspace, so a simple retry loop suffices.
func (s *UserService) generateUniqueNickname() (string, error) {
	for i := 0; i < 100; i++ {
		nickname := utils.GenerateNickname("-")
		existing, err := s.GetByNickname(nickname)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return nickname, nil
		}
	}
	return "", errors.New("could not generate a unique nickname")
}

// translateDuplicate maps a storage-level unique constraint violation onto
// the matching conflict error so a raw database error never leaks.
func (s *UserService) translateDuplicate(err error, email, nickname string) error {
	if !errors.Is(err, gorm.ErrDuplicatedKey) && !isUniqueViolation(err) {
		return err
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "nickname") {
		return ErrDuplicateNickname
	}
	if strings.Contains(msg, "email") {
		return ErrDuplicateEmail
	}
	// Constraint name not recoverable from the driver message; re-check.
	if existing, _ := s.GetByNickname(nickname); existing != nil {
		return ErrDuplicateNickname
	}
	return ErrDuplicateEmail
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate entry") ||
		strings.Contains(msg, "unique failed")
}

func validateProfileURLs(urls ...string) error {
	for _, u := range urls {
		if _, err := utils.ValidateURL(u); err != nil {
			return ErrInvalidURL
		}
	}
	return nil
}
