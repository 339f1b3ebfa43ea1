package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sukoon/backend/internal/companion"
	"sukoon/backend/internal/config"
	"sukoon/backend/internal/store"
)

const authUserKey = "authUser"

type dataStore interface {
	CreateUser(ctx context.Context, input store.NewUser) (store.User, error)
	UserByEmail(ctx context.Context, email string) (store.User, error)
	UserByUsername(ctx context.Context, username string) (store.User, error)
	SaveAssessment(ctx context.Context, userID string, assessment store.Assessment) error
	InsertChatTurn(ctx context.Context, turn store.ChatTurn) (store.ChatTurn, error)
	RecentChatTurns(ctx context.Context, userID string, bot companion.Bot, limit int) ([]store.ChatTurn, error)
	ListChatTurns(ctx context.Context, userID string, bot companion.Bot) ([]store.ChatTurn, error)
	CountChatTurns(ctx context.Context, userID string, bot companion.Bot) (int, error)
	InsertSummary(ctx context.Context, summary store.Summary) (store.Summary, error)
	RecentSummaries(ctx context.Context, userID string, bot companion.Bot, limit int) ([]store.Summary, error)
	DeleteConversation(ctx context.Context, userID string, bot companion.Bot) error
	DeleteAllConversations(ctx context.Context, userID string) error
}

type replyGenerator interface {
	GenerateReply(ctx context.Context, bot companion.Bot, message string, history []companion.Turn, summaries []string) (string, error)
	GenerateSummary(ctx context.Context, bot companion.Bot, history []companion.Turn) (string, error)
}

type App struct {
	cfg       config.Config
	store     dataStore
	companion replyGenerator
}

func New(cfg config.Config, db *pgxpool.Pool, completer companion.Completer) *App {
	return newApp(cfg, store.New(db), companion.New(completer, cfg.OpenRouterModel))
}

func newApp(cfg config.Config, st dataStore, gen replyGenerator) *App {
	return &App{cfg: cfg, store: st, companion: gen}
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("embedded static assets missing: %v", err))
	}
	router.StaticFS("/static", http.FS(static))

	router.GET("/health", a.health)

	router.Use(a.sessionMiddleware())

	router.GET("/", a.root)
	router.GET("/signup", a.signupPage)
	router.POST("/signup", a.signup)
	router.GET("/login", a.loginPage)
	router.POST("/login", a.login)
	router.GET("/logout", a.logout)
	router.GET("/assessment", a.assessmentPage)
	router.POST("/assessment", a.submitAssessment)
	router.GET("/chat", a.chatPage)

	api := router.Group("")
	api.Use(a.requireAPIUser())
	api.POST("/chat/:bot", a.chatWithBot)
	api.GET("/api/chats/:bot", a.listChats)
	api.POST("/api/delete_chats/:bot", a.deleteChats)
	api.POST("/api/clear_all", a.clearAll)

	return router
}

func (a *App) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "sukoon-api",
	})
}

// sessionMiddleware resolves the session token, if any, into the request user.
// Anonymous requests pass through; pages and API routes decide how to react.
func (a *App) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := sessionToken(c, a.cfg.SessionCookieName)
		if tokenString == "" {
			c.Next()
			return
		}

		subject, err := a.parseSessionToken(tokenString)
		if err != nil {
			c.Next()
			return
		}

		user, err := a.store.UserByUsername(c.Request.Context(), subject)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				log.Printf("session lookup failed: %v", err)
			}
			c.Next()
			return
		}

		c.Set(authUserKey, user)
		c.Next()
	}
}

func (a *App) requireAPIUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := authUserFromContext(c); !ok {
			writeError(c, http.StatusUnauthorized, "Not authenticated")
			return
		}
		c.Next()
	}
}

func sessionToken(c *gin.Context, cookieName string) string {
	if value, err := c.Cookie(cookieName); err == nil && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return strings.TrimSpace(authHeader[len("Bearer "):])
	}
	return ""
}

func (a *App) parseSessionToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if token.Method == nil || token.Method.Alg() != a.cfg.JWTAlgorithm {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("Invalid session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("Invalid token payload")
	}
	if a.cfg.JWTAudience != "" && !claimHasAudience(claims["aud"], a.cfg.JWTAudience) {
		return "", errors.New("Invalid token audience")
	}
	if a.cfg.JWTIssuer != "" {
		issuer, _ := claims["iss"].(string)
		if issuer != a.cfg.JWTIssuer {
			return "", errors.New("Invalid token issuer")
		}
	}
	sub, _ := claims["sub"].(string)
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return "", errors.New("Token subject missing")
	}
	return sub, nil
}

func claimHasAudience(value any, audience string) bool {
	switch v := value.(type) {
	case string:
		return v == audience
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == audience {
				return true
			}
		}
	case []string:
		for _, item := range v {
			if item == audience {
				return true
			}
		}
	}
	return false
}

func authUserFromContext(c *gin.Context) (store.User, bool) {
	raw, ok := c.Get(authUserKey)
	if !ok {
		return store.User{}, false
	}
	user, ok := raw.(store.User)
	return user, ok
}

func writeError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func mustJSON(c *gin.Context, payload any) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		writeError(c, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}
