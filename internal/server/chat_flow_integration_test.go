package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestSignupAssessmentChatFlowIntegration(t *testing.T) {
	router := newIntegrationRouter(t)

	signup := performForm(t, router, "/signup", "", url.Values{
		"full_name": {"Integration User"},
		"email":     {"Flow@Example.com"},
		"password":  {"secret-pass"},
		"age":       {"33"},
		"gender":    {"female"},
	})
	if signup.Code != http.StatusFound {
		t.Fatalf("expected signup redirect, got %d body=%s", signup.Code, signup.Body.String())
	}
	cookie := sessionCookie(t, signup)
	if cookie == nil {
		t.Fatalf("expected session cookie")
	}

	assessment := performForm(t, router, "/assessment", cookie.Value, assessmentForm("not_at_all"))
	if assessment.Code != http.StatusFound || assessment.Header().Get("Location") != "/chat" {
		t.Fatalf("expected redirect to /chat, got %d", assessment.Code)
	}
	again := performRequest(t, router, http.MethodGet, "/assessment", cookie.Value, nil, nil)
	if again.Code != http.StatusFound {
		t.Fatalf("answered assessment must redirect, got %d", again.Code)
	}

	for i := 1; i <= 8; i++ {
		rec := performRequest(t, router, http.MethodPost, "/chat/meera", cookie.Value, map[string]any{
			"message": fmt.Sprintf("turn %d, main theek hun yaar", i),
		}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("turn %d: expected 200, got %d body=%s", i, rec.Code, rec.Body.String())
		}
		if reply, _ := decodeJSONMap(t, rec)["reply"].(string); !strings.HasPrefix(reply, "Mock response") {
			t.Fatalf("turn %d: unexpected reply %q", i, reply)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var summaries int
	if err := testPool.QueryRow(ctx, `SELECT COUNT(*)::int FROM summaries WHERE bot = 'meera'`).Scan(&summaries); err != nil {
		t.Fatalf("count summaries: %v", err)
	}
	if summaries != 1 {
		t.Fatalf("expected one summary after eight turns, got %d", summaries)
	}

	history := performRequest(t, router, http.MethodGet, "/api/chats/meera", cookie.Value, nil, nil)
	if history.Code != http.StatusOK || strings.Count(history.Body.String(), `"via_call":false`) != 8 {
		t.Fatalf("expected eight history items, got %d body=%s", history.Code, history.Body.String())
	}

	cleared := performRequest(t, router, http.MethodPost, "/api/clear_all", cookie.Value, nil, nil)
	if cleared.Code != http.StatusOK {
		t.Fatalf("expected clear_all to succeed, got %d", cleared.Code)
	}
	if err := testPool.QueryRow(ctx, `SELECT COUNT(*)::int FROM summaries`).Scan(&summaries); err != nil || summaries != 0 {
		t.Fatalf("expected summaries cleared, got %d err=%v", summaries, err)
	}
}
