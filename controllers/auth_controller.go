package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"goblog/config"
	"goblog/forms"
	"goblog/models"
	"goblog/utils"
)

// AuthController handles registration, token issuance and account endpoints.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

// Register handles account registration with bcrypt hashing. Open to
// unauthenticated callers.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	data, errs := forms.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}.ValidateRegister(a.db)
	if errs.Any() {
		utils.ValidationError(ctx, 40002, errs)
		return
	}

	hash, err := utils.HashPassword(data.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user := models.User{
		Username:     data.Username,
		Email:        data.Email,
		PasswordHash: hash,
	}
	if err := a.db.Create(&user).Error; err != nil {
		// The uniqueness pre-check races with concurrent registration;
		// the unique index has the final word.
		if dupErrs, ok := forms.DuplicateKey(err, "username", "username already exists"); ok {
			utils.ValidationError(ctx, 40002, dupErrs)
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}

	utils.Created(ctx, gin.H{"user": user})
}

// Token verifies credentials and issues an access/refresh token pair.
func (a *AuthController) Token(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	access, refresh, err := utils.GenerateTokenPair(user.ID, user.Username)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate tokens")
		return
	}

	utils.Success(ctx, gin.H{
		"access":  access,
		"refresh": refresh,
		"user":    user,
	})
}

// RefreshToken exchanges a valid refresh token for a new access token.
func (a *AuthController) RefreshToken(ctx *gin.Context) {
	var req struct {
		Refresh string `json:"refresh" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, "invalid request payload")
		return
	}

	if utils.IsTokenBlacklisted(req.Refresh) {
		utils.Error(ctx, http.StatusUnauthorized, 40104, "token revoked")
		return
	}

	claims, err := utils.ParseToken(req.Refresh)
	if err != nil || claims.TokenType != utils.TokenTypeRefresh {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid refresh token")
		return
	}

	// The account may have been removed since the refresh token was issued.
	var user models.User
	if err := a.db.First(&user, claims.UserID).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid refresh token")
		return
	}

	access, err := utils.GenerateToken(user.ID, user.Username, utils.TokenTypeAccess, accessTokenTTL())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{"access": access})
}

// Logout invalidates the presented access token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid authorization header")
		return
	}

	token := strings.TrimSpace(parts[1])
	claims, err := utils.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}

	expiresAt := time.Now().Add(accessTokenTTL())
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the current authenticated user's information.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}

	utils.Success(ctx, gin.H{"user": user})
}

// ChangePassword verifies the old credential and stores a new hash.
func (a *AuthController) ChangePassword(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40005, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
		return
	}

	errs := forms.ChangePasswordInput{
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	}.ValidateChangePassword(&user)
	if errs.Any() {
		utils.ValidationError(ctx, 40006, errs)
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}
	if err := a.db.Model(&user).Update("password_hash", hash).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to update password")
		return
	}

	utils.Success(ctx, gin.H{"message": "password changed"})
}

func accessTokenTTL() time.Duration {
	return time.Duration(config.Get().AccessTokenMinutes) * time.Minute
}
