package controllers

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"stockwatch_backend/config"
	"stockwatch_backend/middleware"
	"stockwatch_backend/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	sessionCookieName = "session"
	flashCookieName   = "flash"
	sessionLifetime   = 24 * time.Hour
)

// AuthController handles registration, login and the rendered pages
type AuthController struct {
	db      *gorm.DB
	limiter *middleware.RateLimiter
}

// NewAuthController creates a new auth controller
func NewAuthController(db *gorm.DB, limiter *middleware.RateLimiter) *AuthController {
	return &AuthController{db: db, limiter: limiter}
}

// isSecureMode returns true if running in production mode (HTTPS)
func isSecureMode() bool {
	return config.AppConfig != nil && config.AppConfig.Environment == "production"
}

// setFlash stores a one-shot message shown on the next rendered page
func setFlash(c *gin.Context, message string) {
	c.SetCookie(flashCookieName, url.QueryEscape(message), 60, "/", "", isSecureMode(), true)
}

// takeFlash reads and clears the pending flash message, if any
func takeFlash(c *gin.Context) string {
	raw, err := c.Cookie(flashCookieName)
	if err != nil || raw == "" {
		return ""
	}
	c.SetCookie(flashCookieName, "", -1, "/", "", isSecureMode(), true)
	message, err := url.QueryUnescape(raw)
	if err != nil {
		return ""
	}
	return message
}

// HomePage shows the landing page
// GET /
func (ac *AuthController) HomePage(c *gin.Context) {
	_, loggedIn := ac.sessionUser(c)
	c.HTML(http.StatusOK, "home.html", gin.H{
		"flash":    takeFlash(c),
		"loggedIn": loggedIn,
	})
}

// RegisterPage shows the registration form
// GET /register
func (ac *AuthController) RegisterPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", gin.H{
		"flash": takeFlash(c),
	})
}

// Register handles the registration form submission
// POST /register
func (ac *AuthController) Register(c *gin.Context) {
	fullName := c.PostForm("full_name")
	username := c.PostForm("username")
	email := c.PostForm("email")
	password := c.PostForm("password")
	confirm := c.PostForm("confirm_password")

	if username == "" || email == "" || password == "" {
		c.HTML(http.StatusBadRequest, "register.html", gin.H{
			"error": "Username, email and password are required",
		})
		return
	}
	if password != confirm {
		c.HTML(http.StatusBadRequest, "register.html", gin.H{
			"error": "Passwords do not match",
		})
		return
	}

	var existing models.User
	if err := ac.db.Where("username = ?", username).First(&existing).Error; err == nil {
		c.HTML(http.StatusConflict, "register.html", gin.H{
			"error": "Username already exists. Please choose a different one.",
		})
		return
	}
	if err := ac.db.Where("email = ?", email).First(&existing).Error; err == nil {
		c.HTML(http.StatusConflict, "register.html", gin.H{
			"error": "Email already registered",
		})
		return
	}

	user := models.User{
		Username: username,
		Email:    email,
		FullName: fullName,
	}
	if err := user.SetPassword(password); err != nil {
		c.HTML(http.StatusInternalServerError, "register.html", gin.H{
			"error": "Failed to create account",
		})
		return
	}
	if err := ac.db.Create(&user).Error; err != nil {
		log.Printf("Registration failed for %s: %v", username, err)
		c.HTML(http.StatusInternalServerError, "register.html", gin.H{
			"error": "Failed to create account",
		})
		return
	}

	log.Printf("User %s registered", username)
	setFlash(c, "Registration successful! You can now log in.")
	c.Redirect(http.StatusFound, "/login")
}

// LoginPage shows the login page
// GET /login
func (ac *AuthController) LoginPage(c *gin.Context) {
	if _, ok := ac.sessionUser(c); ok {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	c.HTML(http.StatusOK, "login.html", gin.H{
		"flash": takeFlash(c),
	})
}

// Login handles the login form submission
// POST /login
func (ac *AuthController) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	if username == "" || password == "" {
		c.HTML(http.StatusBadRequest, "login.html", gin.H{
			"error": "Username and password are required",
		})
		return
	}

	var user models.User
	if err := ac.db.Where("username = ?", username).First(&user).Error; err != nil {
		log.Printf("Login failed for user %s: user not found", username)
		ac.limiter.RecordFailure(c.ClientIP())
		c.HTML(http.StatusUnauthorized, "login.html", gin.H{
			"error": "Invalid username or password",
		})
		return
	}
	if !user.CheckPassword(password) {
		log.Printf("Login failed for user %s: invalid password", username)
		ac.limiter.RecordFailure(c.ClientIP())
		c.HTML(http.StatusUnauthorized, "login.html", gin.H{
			"error": "Invalid username or password",
		})
		return
	}

	token, err := generateSessionToken()
	if err != nil {
		c.HTML(http.StatusInternalServerError, "login.html", gin.H{
			"error": "Failed to create session",
		})
		return
	}

	session := models.UserSession{
		UserID:    user.ID,
		Token:     token,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		ExpiresAt: time.Now().Add(sessionLifetime),
	}
	if err := ac.db.Create(&session).Error; err != nil {
		c.HTML(http.StatusInternalServerError, "login.html", gin.H{
			"error": "Failed to create session",
		})
		return
	}

	now := time.Now()
	ac.db.Model(&user).Update("last_login_at", now)
	ac.limiter.Reset(c.ClientIP())

	c.SetCookie(sessionCookieName, token, int(sessionLifetime.Seconds()), "/", "", isSecureMode(), true)

	log.Printf("User %s logged in", username)
	setFlash(c, "Login successful!")
	c.Redirect(http.StatusFound, "/dashboard")
}

// Logout clears the session
// GET /logout
func (ac *AuthController) Logout(c *gin.Context) {
	token, err := c.Cookie(sessionCookieName)
	if err == nil && token != "" {
		ac.db.Where("token = ?", token).Delete(&models.UserSession{})
	}
	c.SetCookie(sessionCookieName, "", -1, "/", "", isSecureMode(), true)
	setFlash(c, "You have been logged out.")
	c.Redirect(http.StatusFound, "/")
}

// Dashboard shows the stock dashboard for the logged-in user
// GET /dashboard
func (ac *AuthController) Dashboard(c *gin.Context) {
	user := CurrentUser(c)
	name := user.FullName
	if name == "" {
		name = user.Username
	}
	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"flash":    takeFlash(c),
		"fullName": name,
	})
}

// APIToken exchanges credentials for a bearer token usable on the JSON API
// POST /api/token
func (ac *AuthController) APIToken(c *gin.Context) {
	var request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := ac.db.Where("username = ?", request.Username).First(&user).Error; err != nil || !user.CheckPassword(request.Password) {
		ac.limiter.RecordFailure(c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, err := middleware.GenerateToken(config.AppConfig.JWTSecret, user.ID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}
	ac.limiter.Reset(c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_in": int(middleware.TokenLifetime.Seconds())})
}

// RequirePage guards HTML pages, redirecting anonymous visitors to /login
func (ac *AuthController) RequirePage() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := ac.sessionUser(c)
		if !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Set("current_user", user)
		c.Next()
	}
}

// RequireAuth guards JSON endpoints. It accepts either the session cookie
// or a bearer token issued by /api/token.
func (ac *AuthController) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, ok := ac.sessionUser(c); ok {
			c.Set("current_user", user)
			c.Next()
			return
		}

		tokenString := middleware.BearerToken(c)
		if tokenString != "" {
			claims, err := middleware.ValidateToken(config.AppConfig.JWTSecret, tokenString)
			if err == nil {
				userID, convErr := strconv.ParseUint(claims.Subject, 10, 32)
				if convErr == nil {
					var user models.User
					if dbErr := ac.db.First(&user, uint(userID)).Error; dbErr == nil {
						c.Set("current_user", user)
						c.Next()
						return
					}
				}
			}
		}

		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		c.Abort()
	}
}

// sessionUser resolves the session cookie to its user, cleaning up
// expired sessions on the way.
func (ac *AuthController) sessionUser(c *gin.Context) (models.User, bool) {
	token, err := c.Cookie(sessionCookieName)
	if err != nil || token == "" {
		return models.User{}, false
	}

	var session models.UserSession
	if err := ac.db.Preload("User").Where("token = ?", token).First(&session).Error; err != nil {
		return models.User{}, false
	}
	if session.IsExpired() {
		ac.db.Delete(&session)
		return models.User{}, false
	}
	return session.User, true
}

// CurrentUser returns the authenticated user set by the auth middleware.
func CurrentUser(c *gin.Context) models.User {
	if v, ok := c.Get("current_user"); ok {
		if user, ok := v.(models.User); ok {
			return user
		}
	}
	return models.User{}
}

// generateSessionToken generates a secure random session token
func generateSessionToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
