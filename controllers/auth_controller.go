package controllers

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/linklet/linklet/config"
	"github.com/linklet/linklet/httperr"
	"github.com/linklet/linklet/middleware"
	"github.com/linklet/linklet/models"
	"github.com/linklet/linklet/utils"
)

// AuthController handles account creation, two-factor login, verification
// codes and the access/refresh token lifecycle.
type AuthController struct {
	db     *gorm.DB
	mailer utils.Mailer
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB, mailer utils.Mailer) *AuthController {
	return &AuthController{db: db, mailer: mailer}
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	maxUsernameLen     = 20
	maxDisplayNameLen  = 40
	minPasswordLen     = 6
	maxPasswordLen     = 64
	verificationDigits = 6
)

// CreateAccount stages a signup: the account only becomes real once the
// emailed code is verified. Repeating the signup for the same email
// restarts the pending attempt with a fresh code.
func (a *AuthController) CreateAccount(ctx *gin.Context) {
	var req struct {
		Username    string `json:"username"`
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
		Password    string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, httperr.BadRequest("invalid request payload"))
		return
	}

	username := strings.TrimSpace(req.Username)
	displayName := strings.TrimSpace(req.DisplayName)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if username == "" || displayName == "" || email == "" || req.Password == "" {
		utils.Fail(ctx, httperr.BadRequest("all fields are required"))
		return
	}
	if len([]rune(username)) > maxUsernameLen {
		utils.Fail(ctx, httperr.BadRequest("username must be at most 20 characters"))
		return
	}
	if len([]rune(displayName)) > maxDisplayNameLen {
		utils.Fail(ctx, httperr.BadRequest("display name must be at most 40 characters"))
		return
	}
	if len(req.Password) < minPasswordLen || len(req.Password) > maxPasswordLen {
		utils.Fail(ctx, httperr.BadRequest("password must be 6-64 characters"))
		return
	}
	if !emailPattern.MatchString(email) {
		utils.Fail(ctx, httperr.BadRequest("invalid email address"))
		return
	}

	// Uniqueness against confirmed users...
	var count int64
	if err := a.db.Model(&models.User{}).
		Where("LOWER(username) = ? OR LOWER(email) = ?", strings.ToLower(username), email).
		Count(&count).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}
	if count > 0 {
		utils.Fail(ctx, httperr.Conflict("username or email already taken"))
		return
	}
	// ...and against other pending signups. The same email may retry.
	if err := a.db.Model(&models.PendingUser{}).
		Where("LOWER(username) = ? AND email <> ?", strings.ToLower(username), email).
		Count(&count).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}
	if count > 0 {
		utils.Fail(ctx, httperr.Conflict("username or email already taken"))
		return
	}

	cfg := config.Get()
	if err := a.checkCodeThrottle(email); err != nil {
		utils.Fail(ctx, err)
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}

	code := utils.GenerateVerificationCode(verificationDigits)
	ttl := time.Duration(cfg.CodeTTLMinutes) * time.Minute
	pending := models.PendingUser{
		Username:      username,
		DisplayName:   displayName,
		Email:         email,
		PasswordHash:  hash,
		Code:          code,
		CodeExpiresAt: time.Now().Add(ttl),
	}

	// Restarted signups replace the previous pending row.
	if err := a.db.Where("email = ?", email).Delete(&models.PendingUser{}).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}
	if err := a.db.Create(&pending).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}

	a.mailer.Enqueue(email, "Your Linklet verification code", utils.VerificationMailBody(code, ttl))
	utils.Created(ctx, gin.H{"message": "verification code sent", "email": email})
}

// LoginAccount checks credentials and, when they match, always falls
// through to email verification; tokens are only issued by VerifyCode.
// Unknown user and wrong password produce the same 401 to avoid account
// enumeration.
func (a *AuthController) LoginAccount(ctx *gin.Context) {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, httperr.BadRequest("invalid request payload"))
		return
	}

	identifier := strings.ToLower(strings.TrimSpace(req.Identifier))
	if identifier == "" || req.Password == "" {
		utils.Fail(ctx, httperr.BadRequest("identifier and password are required"))
		return
	}

	var user models.User
	err := a.db.Where("LOWER(username) = ? OR LOWER(email) = ?", identifier, identifier).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, httperr.Unauthorized("Invalid Credentials"))
			return
		}
		utils.Fail(ctx, httperr.Internal(err))
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Fail(ctx, httperr.Unauthorized("Invalid Credentials"))
		return
	}

	cfg := config.Get()
	ttl := time.Duration(cfg.CodeTTLMinutes) * time.Minute

	// Within the resend cooldown the previous unexpired code stays valid
	// and no duplicate mail goes out. A user with no live code (just
	// consumed, or expired) gets a fresh one regardless, otherwise they
	// would be locked out for the rest of the cooldown window.
	hasLiveCode := user.LoginCode != "" && user.LoginCodeExpiresAt != nil &&
		time.Now().Before(*user.LoginCodeExpiresAt)
	if utils.CooldownTrySet("code:"+user.Email, time.Duration(cfg.ResendCooldownSec)*time.Second) || !hasLiveCode {
		code := utils.GenerateVerificationCode(verificationDigits)
		expires := time.Now().Add(ttl)
		user.LoginCode = code
		user.LoginCodeExpiresAt = &expires
		if err := a.db.Save(&user).Error; err != nil {
			utils.Fail(ctx, httperr.Internal(err))
			return
		}
		a.mailer.Enqueue(user.Email, "Your Linklet login code", utils.VerificationMailBody(code, ttl))
	}

	utils.OK(ctx, gin.H{"requiresVerification": true, "email": user.Email})
}

// VerifyCode consumes a signup or login verification code. A pending
// signup wins over a login code for the same email: a matched pending row
// is promoted into a confirmed user before tokens are issued.
func (a *AuthController) VerifyCode(ctx *gin.Context) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, httperr.BadRequest("invalid request payload"))
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	code := strings.TrimSpace(req.Code)
	if email == "" || code == "" {
		utils.Fail(ctx, httperr.BadRequest("email and code are required"))
		return
	}

	var pending models.PendingUser
	err := a.db.Where("email = ?", email).First(&pending).Error
	switch {
	case err == nil:
		if pending.Code != code || time.Now().After(pending.CodeExpiresAt) {
			utils.Fail(ctx, httperr.BadRequest("Invalid or expired code"))
			return
		}
		user := models.User{
			Username:     pending.Username,
			DisplayName:  pending.DisplayName,
			Email:        pending.Email,
			PasswordHash: pending.PasswordHash,
			AvatarColor:  randomAvatarColor(),
		}
		if err := a.db.Create(&user).Error; err != nil {
			// A confirmed user may have grabbed the username since signup.
			utils.Fail(ctx, httperr.Conflict("username or email already taken"))
			return
		}
		if err := a.db.Delete(&pending).Error; err != nil {
			utils.Fail(ctx, httperr.Internal(err))
			return
		}
		a.issueSession(ctx, &user)
	case errors.Is(err, gorm.ErrRecordNotFound):
		var user models.User
		if err := a.db.Where("LOWER(email) = ?", email).First(&user).Error; err != nil {
			utils.Fail(ctx, httperr.BadRequest("Invalid or expired code"))
			return
		}
		if user.LoginCode == "" || user.LoginCode != code ||
			user.LoginCodeExpiresAt == nil || time.Now().After(*user.LoginCodeExpiresAt) {
			utils.Fail(ctx, httperr.BadRequest("Invalid or expired code"))
			return
		}
		user.LoginCode = ""
		user.LoginCodeExpiresAt = nil
		if err := a.db.Save(&user).Error; err != nil {
			utils.Fail(ctx, httperr.Internal(err))
			return
		}
		a.issueSession(ctx, &user)
	default:
		utils.Fail(ctx, httperr.Internal(err))
	}
}

// ResendCode re-issues the verification code for an in-flight signup or
// login attempt, subject to the per-email cooldown and daily cap. The
// response does not reveal whether the email is known.
func (a *AuthController) ResendCode(ctx *gin.Context) {
	var req struct {
		Email string `json:"email"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, httperr.BadRequest("invalid request payload"))
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		utils.Fail(ctx, httperr.BadRequest("email is required"))
		return
	}

	cfg := config.Get()
	if err := a.checkCodeThrottle(email); err != nil {
		utils.Fail(ctx, err)
		return
	}

	code := utils.GenerateVerificationCode(verificationDigits)
	ttl := time.Duration(cfg.CodeTTLMinutes) * time.Minute
	expires := time.Now().Add(ttl)

	var pending models.PendingUser
	if err := a.db.Where("email = ?", email).First(&pending).Error; err == nil {
		pending.Code = code
		pending.CodeExpiresAt = expires
		if err := a.db.Save(&pending).Error; err != nil {
			utils.Fail(ctx, httperr.Internal(err))
			return
		}
		a.mailer.Enqueue(email, "Your Linklet verification code", utils.VerificationMailBody(code, ttl))
	} else {
		var user models.User
		if err := a.db.Where("LOWER(email) = ?", email).First(&user).Error; err == nil && user.LoginCode != "" {
			user.LoginCode = code
			user.LoginCodeExpiresAt = &expires
			if err := a.db.Save(&user).Error; err != nil {
				utils.Fail(ctx, httperr.Internal(err))
				return
			}
			a.mailer.Enqueue(email, "Your Linklet login code", utils.VerificationMailBody(code, ttl))
		}
	}

	utils.OK(ctx, gin.H{"message": "if the address has a pending verification, a code was sent"})
}

// RefreshAccessToken exchanges a refresh token for a fresh access token,
// rotating the refresh token in the process. Tokens absent from the store
// (revoked at logout, or already rotated) are rejected.
func (a *AuthController) RefreshAccessToken(ctx *gin.Context) {
	tokenStr, err := ctx.Cookie(middleware.RefreshTokenCookie)
	if err != nil || tokenStr == "" {
		utils.Fail(ctx, httperr.Unauthorized("refresh token missing"))
		return
	}

	var stored models.RefreshToken
	if err := a.db.Where("token = ?", tokenStr).First(&stored).Error; err != nil {
		utils.Fail(ctx, httperr.Forbidden("invalid refresh token"))
		return
	}
	if time.Now().After(stored.ExpiresAt) {
		_ = a.db.Delete(&stored).Error
		utils.Fail(ctx, httperr.Forbidden("refresh token expired"))
		return
	}

	var user models.User
	if err := a.db.First(&user, stored.UserID).Error; err != nil {
		utils.Fail(ctx, httperr.Forbidden("invalid refresh token"))
		return
	}

	// Rotation: the presented token is retired together with its session row.
	if err := a.db.Delete(&stored).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}
	a.issueSession(ctx, &user)
}

// Logout revokes the presented refresh token. Always succeeds, even when
// the token was already gone.
func (a *AuthController) Logout(ctx *gin.Context) {
	if tokenStr, err := ctx.Cookie(middleware.RefreshTokenCookie); err == nil && tokenStr != "" {
		_ = a.db.Where("token = ?", tokenStr).Delete(&models.RefreshToken{}).Error
	}
	a.clearSessionCookies(ctx)
	utils.OK(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's own record.
func (a *AuthController) Me(ctx *gin.Context) {
	userID := ctx.GetUint(middleware.ContextUserIDKey)
	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Fail(ctx, httperr.NotFound("user not found"))
		return
	}
	utils.OK(ctx, gin.H{"user": user})
}

// UpdateAvatar changes the caller's avatar color.
func (a *AuthController) UpdateAvatar(ctx *gin.Context) {
	var req struct {
		AvatarColor string `json:"avatar_color"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, httperr.BadRequest("invalid request payload"))
		return
	}
	color := strings.TrimSpace(req.AvatarColor)
	if !avatarColorPattern.MatchString(color) {
		utils.Fail(ctx, httperr.BadRequest("avatar color must be a hex value like #1a2b3c"))
		return
	}

	userID := ctx.GetUint(middleware.ContextUserIDKey)
	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Fail(ctx, httperr.NotFound("user not found"))
		return
	}
	user.AvatarColor = color
	if err := a.db.Save(&user).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}
	utils.OK(ctx, gin.H{"user": user})
}

var avatarColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

var avatarPalette = []string{
	"#e05252", "#e0a152", "#52e07a", "#52b8e0", "#7a52e0", "#e052c8",
}

func randomAvatarColor() string {
	return avatarPalette[int(time.Now().UnixNano())%len(avatarPalette)]
}

// checkCodeThrottle enforces the per-email cooldown and daily send cap.
// The cooldown is checked first so hammering during it does not burn the
// daily quota.
func (a *AuthController) checkCodeThrottle(email string) error {
	cfg := config.Get()
	if !utils.CooldownTrySet("code:"+email, time.Duration(cfg.ResendCooldownSec)*time.Second) {
		return httperr.TooManyRequests("please wait before requesting another code")
	}
	if !utils.FixedWindowAllow("codes:"+email, cfg.ResendMaxPerDay, 24*time.Hour) {
		return httperr.TooManyRequests("daily verification code limit reached")
	}
	return nil
}

// issueSession creates the access/refresh token pair for user, persists the
// refresh token and sets both httpOnly cookies.
func (a *AuthController) issueSession(ctx *gin.Context, user *models.User) {
	cfg := config.Get()
	accessTTL := time.Duration(cfg.AccessTokenTTLMinutes) * time.Minute
	refreshTTL := time.Duration(cfg.RefreshTokenTTLDays) * 24 * time.Hour

	accessToken, err := utils.GenerateAccessToken(user.ID, user.Username, accessTTL)
	if err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}

	refreshToken := models.RefreshToken{
		UserID:    user.ID,
		Token:     utils.NewRefreshTokenString(),
		ExpiresAt: time.Now().Add(refreshTTL),
	}
	if err := a.db.Create(&refreshToken).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}

	ctx.SetCookie(middleware.AccessTokenCookie, accessToken,
		int(accessTTL.Seconds()), "/", cfg.CookieDomain, cfg.CookieSecure, true)
	ctx.SetCookie(middleware.RefreshTokenCookie, refreshToken.Token,
		int(refreshTTL.Seconds()), "/api/auth", cfg.CookieDomain, cfg.CookieSecure, true)

	utils.OK(ctx, gin.H{"user": user})
}

func (a *AuthController) clearSessionCookies(ctx *gin.Context) {
	cfg := config.Get()
	ctx.SetCookie(middleware.AccessTokenCookie, "", -1, "/", cfg.CookieDomain, cfg.CookieSecure, true)
	ctx.SetCookie(middleware.RefreshTokenCookie, "", -1, "/api/auth", cfg.CookieDomain, cfg.CookieSecure, true)
}
