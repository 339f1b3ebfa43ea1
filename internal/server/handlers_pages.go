package server

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"sukoon/backend/internal/companion"
	"sukoon/backend/internal/store"
)

// Self-harm frequencies that route the user to crisis resources.
var crisisSelfHarmAnswers = map[string]struct{}{
	"several_days":     {},
	"more_than_half":   {},
	"nearly_every_day": {},
}

var assessmentQuestions = []string{"mood", "anxiety", "sleep", "interest", "support", "self_harm"}

type personaView struct {
	ID          string
	Name        string
	Description string
}

var personaViews = []personaView{
	{ID: string(companion.BotAarav), Name: companion.BotAarav.DisplayName(), Description: "Calm & Logical Support"},
	{ID: string(companion.BotMeera), Name: companion.BotMeera.DisplayName(), Description: "Warm & Empathetic Support"},
}

func (a *App) root(c *gin.Context) {
	if _, ok := authUserFromContext(c); ok {
		c.Redirect(http.StatusFound, "/chat")
		return
	}
	c.HTML(http.StatusOK, "login.html", gin.H{})
}

func (a *App) assessmentPage(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	if user.HasAssessment() {
		c.Redirect(http.StatusFound, "/chat")
		return
	}
	c.HTML(http.StatusOK, "assessment.html", gin.H{})
}

func (a *App) submitAssessment(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	assessment := buildAssessment(c.PostForm, time.Now().UTC())
	if err := a.store.SaveAssessment(c.Request.Context(), user.ID, assessment); err != nil {
		log.Printf("save assessment failed for user %s: %v", user.ID, err)
		c.HTML(http.StatusInternalServerError, "assessment.html", gin.H{"error": "Could not save your answers, please try again"})
		return
	}

	if isCrisisAssessment(assessment) {
		c.HTML(http.StatusOK, "crisis.html", gin.H{})
		return
	}
	c.Redirect(http.StatusFound, "/chat")
}

func buildAssessment(value func(string) string, now time.Time) store.Assessment {
	assessment := make(store.Assessment, len(assessmentQuestions)+1)
	for _, key := range assessmentQuestions {
		assessment[key] = strings.TrimSpace(value(key))
	}
	assessment["timestamp"] = now.Format(time.RFC3339Nano)
	return assessment
}

func isCrisisAssessment(assessment store.Assessment) bool {
	_, crisis := crisisSelfHarmAnswers[assessment["self_harm"]]
	return crisis
}

func (a *App) chatPage(c *gin.Context) {
	user, ok := authUserFromContext(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	c.HTML(http.StatusOK, "chat.html", gin.H{
		"user":     user,
		"personas": personaViews,
	})
}
