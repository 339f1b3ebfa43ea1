package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"sukoon/backend/internal/companion"
	"sukoon/backend/internal/store"
)

type chatRequest struct {
	Message string `json:"message"`
	ViaCall bool   `json:"via_call"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type chatHistoryItem struct {
	Message   string    `json:"message"`
	Reply     string    `json:"reply"`
	Timestamp time.Time `json:"timestamp"`
	ViaCall   bool      `json:"via_call"`
}

func (a *App) chatWithBot(c *gin.Context) {
	user, _ := authUserFromContext(c)
	bot, ok := botFromParam(c)
	if !ok {
		return
	}

	var payload chatRequest
	if !mustJSON(c, &payload) {
		return
	}
	message := strings.TrimSpace(payload.Message)
	if message == "" {
		writeError(c, http.StatusBadRequest, "Message cannot be empty")
		return
	}

	reply, err := a.runChatTurn(c.Request.Context(), user, bot, message, payload.ViaCall)
	if err != nil {
		log.Printf("chat turn failed user=%s bot=%s: %v", user.ID, bot, err)
		status, detail := chatFailure(err)
		writeError(c, status, detail)
		return
	}
	c.JSON(http.StatusOK, chatResponse{Reply: reply})
}

// runChatTurn generates a reply, persists the turn and, on every
// SummaryEvery-th turn, refreshes the personalization summary. Nothing is
// persisted when the reply cannot be generated. Turns for the same user and
// bot are not serialized: concurrent requests may both see a multiple of
// SummaryEvery and write two summaries, or both miss it.
func (a *App) runChatTurn(ctx context.Context, user store.User, bot companion.Bot, message string, viaCall bool) (string, error) {
	recent, err := a.store.RecentChatTurns(ctx, user.ID, bot, companion.MaxHistoryTurns)
	if err != nil {
		return "", err
	}
	summaries, err := a.store.RecentSummaries(ctx, user.ID, bot, companion.MaxPromptSummaries)
	if err != nil {
		return "", err
	}

	reply, err := a.companion.GenerateReply(ctx, bot, message, store.Turns(recent), store.SummaryTexts(summaries))
	if err != nil {
		return "", err
	}

	if _, err := a.store.InsertChatTurn(ctx, store.ChatTurn{
		UserID:  user.ID,
		Bot:     bot,
		Message: message,
		Reply:   reply,
		ViaCall: viaCall,
	}); err != nil {
		return "", fmt.Errorf("save chat turn: %w", err)
	}

	if err := a.refreshSummary(ctx, user, bot); err != nil {
		log.Printf("auto-summary failed user=%s bot=%s: %v", user.ID, bot, err)
	}
	return reply, nil
}

func (a *App) refreshSummary(ctx context.Context, user store.User, bot companion.Bot) error {
	count, err := a.store.CountChatTurns(ctx, user.ID, bot)
	if err != nil {
		return err
	}
	if !companion.ShouldSummarize(count) {
		return nil
	}

	recent, err := a.store.RecentChatTurns(ctx, user.ID, bot, companion.SummaryEvery)
	if err != nil {
		return err
	}
	text, err := a.companion.GenerateSummary(ctx, bot, store.Turns(recent))
	if err != nil {
		return err
	}
	_, err = a.store.InsertSummary(ctx, store.Summary{UserID: user.ID, Bot: bot, SummaryText: text})
	return err
}

func chatFailure(err error) (int, string) {
	var transportErr *companion.TransportError
	var shapeErr *companion.ResponseShapeError
	switch {
	case companion.IsConfigurationError(err):
		return http.StatusServiceUnavailable, "Chat service is not configured"
	case errors.As(err, &transportErr):
		return http.StatusBadGateway, "Chat service is unavailable, please try again"
	case errors.As(err, &shapeErr):
		return http.StatusBadGateway, "Chat service returned an invalid response"
	default:
		return http.StatusInternalServerError, "Failed to process message"
	}
}

func (a *App) listChats(c *gin.Context) {
	user, _ := authUserFromContext(c)
	bot, ok := botFromParam(c)
	if !ok {
		return
	}

	chats, err := a.store.ListChatTurns(c.Request.Context(), user.ID, bot)
	if err != nil {
		log.Printf("list chats failed user=%s bot=%s: %v", user.ID, bot, err)
		writeError(c, http.StatusInternalServerError, "Failed to load conversation")
		return
	}

	items := make([]chatHistoryItem, 0, len(chats))
	for _, chat := range chats {
		items = append(items, chatHistoryItem{
			Message:   chat.Message,
			Reply:     chat.Reply,
			Timestamp: chat.CreatedAt,
			ViaCall:   chat.ViaCall,
		})
	}
	c.JSON(http.StatusOK, items)
}

func (a *App) deleteChats(c *gin.Context) {
	user, _ := authUserFromContext(c)
	bot, ok := botFromParam(c)
	if !ok {
		return
	}

	if err := a.store.DeleteConversation(c.Request.Context(), user.ID, bot); err != nil {
		log.Printf("delete conversation failed user=%s bot=%s: %v", user.ID, bot, err)
		writeError(c, http.StatusInternalServerError, "Failed to delete conversation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Deleted all %s conversations", bot)})
}

func (a *App) clearAll(c *gin.Context) {
	user, _ := authUserFromContext(c)
	if err := a.store.DeleteAllConversations(c.Request.Context(), user.ID); err != nil {
		log.Printf("clear all failed user=%s: %v", user.ID, err)
		writeError(c, http.StatusInternalServerError, "Failed to delete conversation data")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deleted all conversation data"})
}

func botFromParam(c *gin.Context) (companion.Bot, bool) {
	bot, err := companion.ParseBot(c.Param("bot"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "Invalid bot")
		return "", false
	}
	return bot, true
}
