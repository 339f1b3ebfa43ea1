package server

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"sukoon/backend/internal/store"
)

const (
	minAge = 1
	maxAge = 120
)

// Tests lower this to bcrypt.MinCost.
var passwordHashCost = bcrypt.DefaultCost

type signupForm struct {
	FullName string `form:"full_name" binding:"required"`
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
	Age      int    `form:"age"`
	Gender   string `form:"gender" binding:"required"`
}

type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (a *App) issueSessionToken(username string, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": username,
		"iat": now.Unix(),
		"exp": now.Add(a.sessionTTL()).Unix(),
	}
	if a.cfg.JWTAudience != "" {
		claims["aud"] = a.cfg.JWTAudience
	}
	if a.cfg.JWTIssuer != "" {
		claims["iss"] = a.cfg.JWTIssuer
	}

	method := jwt.GetSigningMethod(a.cfg.JWTAlgorithm)
	if method == nil {
		return "", errors.New("unsupported JWT algorithm")
	}
	return jwt.NewWithClaims(method, claims).SignedString([]byte(a.cfg.JWTSecret))
}

func (a *App) sessionTTL() time.Duration {
	return time.Duration(a.cfg.AccessTokenTTLMinutes) * time.Minute
}

func (a *App) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(a.cfg.SessionCookieName, token, int(a.sessionTTL().Seconds()), "/", "", a.cfg.SessionCookieSecure, true)
}

func (a *App) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(a.cfg.SessionCookieName, "", -1, "/", "", a.cfg.SessionCookieSecure, true)
}

func (a *App) startSession(c *gin.Context, user store.User, redirectTo string) bool {
	token, err := a.issueSessionToken(user.Username, time.Now().UTC())
	if err != nil {
		log.Printf("issue session token failed: %v", err)
		return false
	}
	a.setSessionCookie(c, token)
	c.Redirect(http.StatusFound, redirectTo)
	return true
}

func (a *App) signupPage(c *gin.Context) {
	c.HTML(http.StatusOK, "signup.html", gin.H{})
}

func (a *App) signup(c *gin.Context) {
	var form signupForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusOK, "signup.html", gin.H{"error": "Please fill in every field"})
		return
	}
	if form.Age < minAge || form.Age > maxAge {
		c.HTML(http.StatusOK, "signup.html", gin.H{"error": "Please enter a valid age between 1 and 120"})
		return
	}

	hashed, err := hashPassword(form.Password)
	if err != nil {
		log.Printf("password hash failed: %v", err)
		c.HTML(http.StatusInternalServerError, "signup.html", gin.H{"error": "Could not create account, please try again"})
		return
	}

	user, err := a.store.CreateUser(c.Request.Context(), store.NewUser{
		Email:        form.Email,
		FullName:     form.FullName,
		Age:          form.Age,
		Gender:       form.Gender,
		PasswordHash: hashed,
	})
	if errors.Is(err, store.ErrEmailTaken) {
		c.HTML(http.StatusOK, "signup.html", gin.H{"error": "Email already exists"})
		return
	}
	if err != nil {
		log.Printf("create user failed: %v", err)
		c.HTML(http.StatusInternalServerError, "signup.html", gin.H{"error": "Could not create account, please try again"})
		return
	}

	if !a.startSession(c, user, "/assessment") {
		c.HTML(http.StatusInternalServerError, "signup.html", gin.H{"error": "Could not create account, please try again"})
	}
}

func (a *App) loginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{})
}

func (a *App) login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusOK, "login.html", gin.H{"error": "Invalid email or password"})
		return
	}

	user, err := a.store.UserByEmail(c.Request.Context(), strings.TrimSpace(form.Username))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Printf("login lookup failed: %v", err)
		c.HTML(http.StatusInternalServerError, "login.html", gin.H{"error": "Could not sign in, please try again"})
		return
	}
	if err != nil || !checkPassword(user.PasswordHash, form.Password) {
		c.HTML(http.StatusOK, "login.html", gin.H{"error": "Invalid email or password"})
		return
	}

	if !a.startSession(c, user, "/chat") {
		c.HTML(http.StatusInternalServerError, "login.html", gin.H{"error": "Could not sign in, please try again"})
	}
}

func (a *App) logout(c *gin.Context) {
	a.clearSessionCookie(c)
	c.Redirect(http.StatusFound, "/")
}
