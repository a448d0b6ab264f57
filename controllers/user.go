package controllers

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"Garito/middleware"
	models "Garito/models/postgres"
	"Garito/services/ledger"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// @Summary Create a new user account
// @Description Registers an account with email, username and password. The wallet starts empty.
// @Tags users
// @Accept x-www-form-urlencoded
// @Produce json
// @Param email formData string true "Email address"
// @Param username formData string true "Public username"
// @Param password formData string true "Password"
// @Success 201 {object} object{message=string}
// @Failure 400 {object} object{error=string}
// @Failure 409 {object} object{error=string}
// @Router /signup [post]
func SignUp(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := strings.TrimSpace(c.PostForm("email"))
		username := strings.TrimSpace(c.PostForm("username"))
		password := c.PostForm("password")

		if email == "" || username == "" || password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Parameters can't be empty"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error hashing password"})
			return
		}

		user := models.User{
			Email:           email,
			ProfileUsername: username,
			PasswordHash:    string(hash),
			MemberSince:     time.Now(),
		}
		if err := db.Create(&user).Error; err != nil {
			log.Printf("[SIGNUP-ERROR] %s: %v", email, err)
			c.JSON(http.StatusConflict, gin.H{"error": "Email or username already taken"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "Account created"})
	}
}

// @Summary Log in
// @Description Checks credentials, opens a session and returns a JWT for the socket handshake.
// @Tags users
// @Accept x-www-form-urlencoded
// @Produce json
// @Param email formData string true "Email address"
// @Param password formData string true "Password"
// @Success 200 {object} object{token=string,username=string}
// @Failure 400 {object} object{error=string}
// @Failure 401 {object} object{error=string}
// @Router /login [post]
func Login(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		email := c.PostForm("email")
		password := c.PostForm("password")

		//Minimum input sanitizing
		if strings.Trim(email, " ") == "" || strings.Trim(password, " ") == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Parameters can't be empty"})
			return
		}

		var user models.User
		if err := db.Where("email = ?", email).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password!"})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password!"})
			return
		}

		token, err := middleware.GenerateJWT(user.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error generating token"})
			return
		}

		session.Set("Email", user.Email)
		if err := session.Save(); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No session!"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "username": user.ProfileUsername})
	}
}

// Logout from server, deletes the session associated with the Email key
// @Summary Log out
// @Description Deletes the caller's session.
// @Tags users
// @Produce json
// @Success 200 {object} object{message=string}
// @Failure 400 {object} object{error=string}
// @Router /logout [post]
func Logout(c *gin.Context) {
	session := sessions.Default(c)
	user := session.Get("Email")
	// There is no session for the user, won't delete nothing
	if user == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session token"})
		return
	}

	session.Delete("Email")
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

// @Summary Get public info of a user
// @Description Returns the public profile of any username.
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} object{username=string,icon=integer,member_since=string}
// @Failure 404 {object} object{error=string}
// @Router /users/{username} [get]
func GetUserPublicInfo(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		username := c.Param("username")

		var user models.User
		if err := db.Where("profile_username = ?", username).First(&user).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"username":     user.ProfileUsername,
			"icon":         user.UserIcon,
			"member_since": user.MemberSince,
		})
	}
}

// @Summary Get wallet balance
// @Description Returns the authenticated user's balance in cents.
// @Tags wallet
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Success 200 {object} object{username=string,balance_cents=integer}
// @Failure 401 {object} object{error=string}
// @Router /auth/wallet [get]
// @Security ApiKeyAuth
func GetBalance(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := authenticatedUser(c, db)
		if !ok {
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"username":      user.ProfileUsername,
			"balance_cents": user.BalanceCents,
		})
	}
}

// @Summary Deposit into the wallet
// @Description Credits the authenticated user's wallet. Amount is in cents.
// @Tags wallet
// @Accept x-www-form-urlencoded
// @Produce json
// @Param Authorization header string true "Bearer JWT token"
// @Param amount formData integer true "Amount in cents"
// @Success 200 {object} object{receipt_id=string}
// @Failure 400 {object} object{error=string}
// @Failure 401 {object} object{error=string}
// @Router /auth/wallet/deposit [post]
// @Security ApiKeyAuth
func Deposit(db *gorm.DB, wallet ledger.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := authenticatedUser(c, db)
		if !ok {
			return
		}

		amount, err := strconv.ParseInt(c.PostForm("amount"), 10, 64)
		if err != nil || amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be a positive integer of cents"})
			return
		}

		receiptID, err := wallet.Credit(user.ProfileUsername, amount, "deposit")
		if err != nil {
			log.Printf("[DEPOSIT-ERROR] %s: %v", user.ProfileUsername, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Deposit failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"receipt_id": receiptID})
	}
}

// authenticatedUser resolves the JWT on the request to a user row.
// Writes the error response itself when authentication fails.
func authenticatedUser(c *gin.Context, db *gorm.DB) (*models.User, bool) {
	email, err := middleware.JWT_decoder(c)
	if err != nil {
		log.Print("Error en jwt...")
		return nil, false
	}

	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found: invalid email"})
		return nil, false
	}
	return &user, true
}
