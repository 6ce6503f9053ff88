package routes

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/yoockh/techfinder/internal/api/handlers"
	"github.com/yoockh/techfinder/internal/api/middleware"
	"github.com/yoockh/techfinder/internal/cache"
	"github.com/yoockh/techfinder/internal/models"
	"github.com/yoockh/techfinder/internal/profilestore"
	"github.com/yoockh/techfinder/internal/repositories/memory"
	"github.com/yoockh/techfinder/internal/services"
	"github.com/yoockh/techfinder/internal/utils"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type harness struct {
	router *gin.Engine
	src    *memory.ProfileSource
	favs   *memory.FavoriteRepo
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, _ := test.NewNullLogger()

	src := memory.NewProfileSource()
	src.Put(models.CategoryContractor, "tech-a", map[string]any{
		"firebaseUID":   "uid-a",
		"firstName":     "Ana",
		"availability":  "Full Time",
		"qualification": "Developer",
		"skills":        []any{map[string]any{"skill": "Java"}, map[string]any{"skill": "Go"}},
		"location":      "Jakarta, JK, ID",
	})
	src.Put(models.CategoryContractor, "tech-b", map[string]any{
		"firebaseUID":  "uid-b",
		"firstName":    "Budi",
		"availability": "Other",
		"skills":       []any{map[string]any{"skill": "Rust"}},
	})
	src.Put(models.CategoryRecruiter, "rec-r", map[string]any{
		"firebaseUID": "uid-r",
		"firstName":   "Rina",
		"companyName": "Acme",
	})
	favs := memory.NewFavoriteRepo()

	sessions := services.NewSessionService(func() *profilestore.Store {
		return profilestore.New(src, nil, log)
	}, log)
	t.Cleanup(sessions.Close)

	search := services.NewSearchService(sessions, cache.NewMemoryCache(), time.Hour, log)

	r := gin.New()
	RegisterRoutes(r, Deps{
		Auth:     middleware.JWTOptions{Secret: testSecret},
		Session:  handlers.NewSessionHandler(sessions),
		Profile:  handlers.NewProfileHandler(services.NewProfileService(sessions, nil, log)),
		Search:   handlers.NewSearchHandler(search),
		Favorite: handlers.NewFavoriteHandler(services.NewFavoriteService(src, sessions, favs, nil, log)),
		WS:       handlers.NewWSHandler(sessions, search, nil, log),
	})
	return &harness{router: r, src: src, favs: favs}
}

func token(t *testing.T, secret, subject string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func (h *harness) do(t *testing.T, method, path, subject string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if subject != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, testSecret, subject))
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestPingIsPublic(t *testing.T) {
	h := newHarness(t)
	if w := h.do(t, http.MethodGet, "/ping", "", nil); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAuthRejectsBadTokens(t *testing.T) {
	h := newHarness(t)

	if w := h.do(t, http.MethodGet, "/profile/me", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/profile/me", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, strings.Repeat("x", 32), "uid-a"))
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/profile/me", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, testSecret, ""))
	w = httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no subject: status = %d", w.Code)
	}
}

func TestProfileRoutes(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodGet, "/profile/me", "uid-a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me: status = %d body = %s", w.Code, w.Body)
	}
	var me models.Profile
	decode(t, w, &me)
	if me.ID != "tech-a" || me.Contractor == nil {
		t.Fatalf("me = %+v", me)
	}

	w = h.do(t, http.MethodGet, "/profile/uid-r", "uid-a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("by identity: status = %d", w.Code)
	}

	if w := h.do(t, http.MethodGet, "/contractors/tech-b", "uid-a", nil); w.Code != http.StatusOK {
		t.Fatalf("contractor: status = %d", w.Code)
	}
	if w := h.do(t, http.MethodGet, "/contractors/nope", "uid-a", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing contractor: status = %d", w.Code)
	}

	var list struct {
		Count int `json:"count"`
	}
	decode(t, h.do(t, http.MethodGet, "/contractors", "uid-a", nil), &list)
	if list.Count != 2 {
		t.Fatalf("contractors count = %d", list.Count)
	}
	decode(t, h.do(t, http.MethodGet, "/recruiters", "uid-a", nil), &list)
	if list.Count != 1 {
		t.Fatalf("recruiters count = %d", list.Count)
	}
}

func TestProfileUpdate(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPut, "/profile/me", "uid-a", map[string]any{"firstName": "Anna"})
	if w.Code != http.StatusOK {
		t.Fatalf("update: status = %d body = %s", w.Code, w.Body)
	}
	var resp struct {
		Message string `json:"message"`
	}
	decode(t, w, &resp)
	if resp.Message != profilestore.NoticeSaved {
		t.Fatalf("message = %q", resp.Message)
	}

	var me models.Profile
	decode(t, h.do(t, http.MethodGet, "/profile/me", "uid-a", nil), &me)
	if me.FirstName != "Anna" {
		t.Fatalf("firstName = %q", me.FirstName)
	}

	w = h.do(t, http.MethodPut, "/profile/me", "uid-a", map[string]any{"availability": "Weekends"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid availability: status = %d", w.Code)
	}

	w = h.do(t, http.MethodPut, "/profile/me", "uid-nobody", map[string]any{"firstName": "X"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown identity: status = %d", w.Code)
	}
}

func TestSearchRoutes(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, http.MethodPost, "/search", "uid-r", map[string]any{"skills": []string{"Go", "Kotlin"}})
	if w.Code != http.StatusOK {
		t.Fatalf("search: status = %d body = %s", w.Code, w.Body)
	}
	var out services.SearchOutcome
	decode(t, w, &out)
	if out.Count != 1 || out.Results[0].ID != "tech-a" {
		t.Fatalf("outcome = %+v", out)
	}
	if p := out.Results[0].PercentMatching; p == nil || *p != 50 {
		t.Fatalf("percent = %v", p)
	}
	if len(out.Steps) != 4 || out.Steps[0].Name != "availability" || out.Steps[0].Dropped != 1 {
		t.Fatalf("steps = %+v", out.Steps)
	}

	w = h.do(t, http.MethodGet, "/search/last", "uid-r", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Kotlin") {
		t.Fatalf("last: status = %d body = %s", w.Code, w.Body)
	}

	if w := h.do(t, http.MethodDelete, "/search/last", "uid-r", nil); w.Code != http.StatusNoContent {
		t.Fatalf("clear: status = %d", w.Code)
	}
	if w := h.do(t, http.MethodGet, "/search/last", "uid-r", nil); w.Code != http.StatusNotFound {
		t.Fatalf("last after clear: status = %d", w.Code)
	}
}

func TestFavoriteRoutes(t *testing.T) {
	h := newHarness(t)

	var resp handlers.ToggleResponse
	decode(t, h.do(t, http.MethodPost, "/favorites/tech-a/toggle", "uid-r", nil), &resp)
	if !resp.Favorited || !resp.Changed {
		t.Fatalf("first toggle = %+v", resp)
	}

	var got struct {
		Favorited bool `json:"favorited"`
		Count     int  `json:"count"`
	}
	decode(t, h.do(t, http.MethodGet, "/favorites/tech-a", "uid-r", nil), &got)
	if !got.Favorited {
		t.Fatalf("favorite not stored")
	}
	decode(t, h.do(t, http.MethodGet, "/favorites", "uid-r", nil), &got)
	if got.Count != 1 {
		t.Fatalf("list count = %d", got.Count)
	}

	decode(t, h.do(t, http.MethodPost, "/favorites/tech-a/toggle", "uid-r", map[string]bool{"current": true}), &resp)
	if resp.Favorited || !resp.Changed {
		t.Fatalf("second toggle = %+v", resp)
	}
	if n := h.favs.Count("tech-a", "uid-r"); n != 0 {
		t.Fatalf("records = %d", n)
	}

	if w := h.do(t, http.MethodPost, "/favorites/ghost/toggle", "uid-r", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing contractor: status = %d", w.Code)
	}
}

func TestFavoriteToggleErrorsCarryUnchangedState(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name     string
		path     string
		identity string
		status   int
		code     utils.Code
	}{
		{name: "missing contractor", path: "/favorites/ghost/toggle", identity: "uid-r", status: http.StatusNotFound, code: utils.CodeNotFound},
		{name: "contractor caller", path: "/favorites/tech-b/toggle", identity: "uid-a", status: http.StatusForbidden, code: utils.CodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(t, http.MethodPost, tt.path, tt.identity, map[string]bool{"current": true})
			if w.Code != tt.status {
				t.Fatalf("status = %d body = %s", w.Code, w.Body)
			}
			var resp handlers.ToggleError
			decode(t, w, &resp)
			if resp.Code != tt.code || !resp.Favorited || resp.Changed {
				t.Fatalf("resp = %+v, want %s with favorited=true changed=false", resp, tt.code)
			}
		})
	}
	if n := h.favs.Count("tech-b", "uid-a"); n != 0 {
		t.Fatalf("records = %d, want 0", n)
	}
}

func TestFavoriteToggleStoreFailureKeepsState(t *testing.T) {
	h := newHarness(t)
	h.favs.SetError(errors.New("connection reset"))

	w := h.do(t, http.MethodPost, "/favorites/tech-a/toggle", "uid-r", map[string]bool{"current": true})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body)
	}
	var resp handlers.ToggleResponse
	decode(t, w, &resp)
	if !resp.Favorited || resp.Changed {
		t.Fatalf("resp = %+v, want unchanged favorited state", resp)
	}
}

func TestSessionRoutes(t *testing.T) {
	h := newHarness(t)

	if w := h.do(t, http.MethodGet, "/session", "uid-a", nil); w.Code != http.StatusNotFound {
		t.Fatalf("session before use: status = %d", w.Code)
	}
	h.do(t, http.MethodGet, "/profile/me", "uid-a", nil)

	w := h.do(t, http.MethodGet, "/session", "uid-a", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("session: status = %d", w.Code)
	}
	if h.src.Subscribers(models.CategoryContractor) != 1 {
		t.Fatalf("subscribers = %d", h.src.Subscribers(models.CategoryContractor))
	}

	for i := 0; i < 2; i++ {
		if w := h.do(t, http.MethodPost, "/session/logout", "uid-a", nil); w.Code != http.StatusNoContent {
			t.Fatalf("logout %d: status = %d", i, w.Code)
		}
	}
	if h.src.Subscribers(models.CategoryContractor) != 0 {
		t.Fatalf("subscription kept after logout")
	}
}

func TestLiveSearchPushesRevisions(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.router)
	defer srv.Close()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token(t, testSecret, "uid-r"))
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/search", header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	type serverMsg struct {
		Type    string                 `json:"type"`
		Outcome services.SearchOutcome `json:"outcome"`
	}
	read := func() serverMsg {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var m serverMsg
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("read: %v", err)
		}
		return m
	}

	if err := conn.WriteJSON(map[string]any{"type": "search", "spec": map[string]any{"skills": []string{"Go"}}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	first := read()
	if first.Type != "matches" || first.Outcome.Count != 1 {
		t.Fatalf("first = %+v", first)
	}

	h.src.Put(models.CategoryContractor, "tech-c", map[string]any{
		"firebaseUID":  "uid-c",
		"firstName":    "Citra",
		"availability": "Part Time",
		"skills":       []any{map[string]any{"skill": "Go"}},
	})

	next := read()
	if next.Outcome.Count != 2 || next.Outcome.Revision <= first.Outcome.Revision {
		t.Fatalf("next = %+v", next)
	}
}

func TestLiveSearchRejectsForeignOrigin(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.router)
	defer srv.Close()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token(t, testSecret, "uid-r"))
	header.Set("Origin", "https://evil.example.com")
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/search", header)
	if err == nil {
		t.Fatalf("dial from a foreign origin succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("resp = %+v, want 403", resp)
	}
}
