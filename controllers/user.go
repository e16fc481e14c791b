package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"crypto_analysis_backend/middleware"
	"crypto_analysis_backend/models"
)

// UserController handles auth and user-related requests
type UserController struct {
	db *gorm.DB
}

// NewUserController creates a new user controller
func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db}
}

// Register creates a new user account
// POST /api/v1/auth/register
func (uc *UserController) Register(c *gin.Context) {
	var request struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=8"`
		FullName string `json:"full_name"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Check if user already exists
	var existing models.User
	if err := uc.db.Where("email = ?", request.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
		return
	}

	user := models.User{
		Email:    request.Email,
		FullName: request.FullName,
		Role:     "user",
		IsActive: true,
	}
	if err := user.SetPassword(request.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	if err := uc.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"user":  user,
			"token": token,
		},
	})
}

// Login authenticates a user and issues a JWT
// POST /api/v1/auth/login
func (uc *UserController) Login(c *gin.Context) {
	var request struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ip := c.ClientIP()

	var user models.User
	err := uc.db.Where("email = ?", request.Email).First(&user).Error
	if err != nil || !user.CheckPassword(request.Password) {
		middleware.RecordLoginAttempt(ip, false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if !user.IsActive {
		middleware.RecordLoginAttempt(ip, false)
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
		return
	}

	middleware.RecordLoginAttempt(ip, true)

	now := time.Now()
	uc.db.Model(&user).Update("last_login_at", now)

	token, err := middleware.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"user":  user,
			"token": token,
		},
	})
}

// GetProfile returns the authenticated user's profile
// GET /api/v1/users/me
func (uc *UserController) GetProfile(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var user models.User
	if err := uc.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}

// UpdateProfile updates the authenticated user's profile
// PUT /api/v1/users/me
func (uc *UserController) UpdateProfile(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var user models.User
	if err := uc.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var request struct {
		FullName string `json:"full_name"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if request.FullName != "" {
		updates["full_name"] = request.FullName
	}
	if request.Password != "" {
		if len(request.Password) < 8 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters"})
			return
		}
		if err := user.SetPassword(request.Password); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
			return
		}
		updates["password_hash"] = user.PasswordHash
	}

	if len(updates) > 0 {
		if err := uc.db.Model(&user).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}

// GetUsers returns list of all users with pagination (admin only)
// GET /api/v1/users
func (uc *UserController) GetUsers(c *gin.Context) {
	var users []models.User

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset := (page - 1) * limit

	query := uc.db.Model(&models.User{})

	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if isActive := c.Query("is_active"); isActive != "" {
		query = query.Where("is_active = ?", isActive == "true")
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("email ILIKE ? OR full_name ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	query.Count(&total)

	if err := query.Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": users,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetWatchlist returns the authenticated user's watchlist
// GET /api/v1/users/me/watchlist
func (uc *UserController) GetWatchlist(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var watchlist []models.Watchlist
	if err := uc.db.Where("user_id = ?", userID).Preload("Asset").Find(&watchlist).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch watchlist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": watchlist})
}

// AddToWatchlist adds an asset to the user's watchlist
// POST /api/v1/users/me/watchlist
func (uc *UserController) AddToWatchlist(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var request struct {
		Symbol     string          `json:"symbol" binding:"required"`
		Notes      string          `json:"notes"`
		AlertPrice decimal.Decimal `json:"alert_price"`
		AlertType  string          `json:"alert_type"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if request.AlertType != "" && !models.IsValidWatchlistAlertType(request.AlertType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert type"})
		return
	}

	var asset models.Asset
	if err := uc.db.Where("symbol = ?", request.Symbol).First(&asset).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}

	var existing models.Watchlist
	if err := uc.db.Where("user_id = ? AND asset_id = ?", userID, asset.ID).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Asset already in watchlist"})
		return
	}

	entry := models.Watchlist{
		UserID:     userID,
		AssetID:    asset.ID,
		Notes:      request.Notes,
		AlertPrice: request.AlertPrice,
		AlertType:  request.AlertType,
	}
	if err := uc.db.Create(&entry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add to watchlist"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": entry})
}

// RemoveFromWatchlist removes an entry from the user's watchlist
// DELETE /api/v1/users/me/watchlist/:id
func (uc *UserController) RemoveFromWatchlist(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	id := c.Param("id")

	result := uc.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Watchlist{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove from watchlist"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Watchlist entry not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Removed from watchlist"})
}

// GetAlerts returns the authenticated user's alerts
// GET /api/v1/users/me/alerts
func (uc *UserController) GetAlerts(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var alerts []models.UserAlert
	if err := uc.db.Where("user_id = ?", userID).Preload("Asset").Find(&alerts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch alerts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": alerts})
}

// CreateAlert creates a new price alert for the user
// POST /api/v1/users/me/alerts
func (uc *UserController) CreateAlert(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var request struct {
		Symbol      string          `json:"symbol" binding:"required"`
		AlertType   string          `json:"alert_type" binding:"required"`
		TargetValue decimal.Decimal `json:"target_value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !models.IsValidUserAlertType(request.AlertType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert type"})
		return
	}

	var asset models.Asset
	if err := uc.db.Where("symbol = ?", request.Symbol).First(&asset).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Asset not found"})
		return
	}

	alert := models.UserAlert{
		UserID:      userID,
		AssetID:     asset.ID,
		AlertType:   request.AlertType,
		TargetValue: request.TargetValue,
		IsActive:    true,
	}
	if err := uc.db.Create(&alert).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create alert"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": alert})
}

// DeleteAlert removes a user alert
// DELETE /api/v1/users/me/alerts/:id
func (uc *UserController) DeleteAlert(c *gin.Context) {
	userID, err := middleware.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	id := c.Param("id")

	result := uc.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.UserAlert{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete alert"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Alert deleted"})
}
