package handlers_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/threadline/stylist/internal/ai"
	"github.com/threadline/stylist/internal/analytics"
	"github.com/threadline/stylist/internal/auth"
	"github.com/threadline/stylist/internal/brain"
	"github.com/threadline/stylist/internal/config"
	"github.com/threadline/stylist/internal/eventlog"
	"github.com/threadline/stylist/internal/httpapi"
	"github.com/threadline/stylist/internal/httpapi/handlers"
	"github.com/threadline/stylist/internal/session"
	"github.com/threadline/stylist/internal/store/memstore"
	"github.com/threadline/stylist/internal/vision"
	"github.com/threadline/stylist/internal/whatsapp"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeProvider struct {
	reply string
	err   error
}

func (p *fakeProvider) Generate(ctx context.Context, messages []ai.Message, opts ai.Options) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

type testApp struct {
	router   *gin.Engine
	sessions *session.Manager
}

func newTestApp(t *testing.T, prov ai.Provider) *testApp {
	t.Helper()

	hash, err := auth.HashPassword("admin-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cfg := config.Config{
		JWTSecret:         "test-secret",
		AdminPasswordHash: hash,
	}

	store := memstore.New()
	sessions := session.NewManager(store, nil, nil, time.Hour)
	b := brain.New(sessions, prov, nil, 10, 300, 0.7, time.Second)

	db, err := gorm.Open(gormsqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&eventlog.Event{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	wa := whatsapp.NewClient("AC123", "secret", "whatsapp:+14155238886")

	h := handlers.NewHandler(cfg, nil, sessions, b, vision.NewAnalyzer(nil), wa,
		analytics.NewService(eventlog.NewRepo(db), store))
	return &testApp{
		router:   httpapi.NewRouter(h),
		sessions: sessions,
	}
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) (int, map[string]any) {
	t.Helper()
	var env struct {
		Code    int            `json:"code"`
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v\n%s", err, w.Body.String())
	}
	return env.Code, env.Data
}

func warmSelfiePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 30, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 30; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 220, G: 170, B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestSendChatMessage(t *testing.T) {
	app := newTestApp(t, &fakeProvider{reply: "Welcome back!"})

	w := postJSON(t, app.router, "/chat/message",
		gin.H{"user_id": "u1", "message": "hi"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	code, data := decodeEnvelope(t, w)
	if code != 0 {
		t.Fatalf("expected code 0, got %d", code)
	}
	if data["response"] != "Welcome back!" {
		t.Fatalf("unexpected reply: %v", data["response"])
	}
	if data["channel"] != "web" {
		t.Fatalf("channel should default to web, got %v", data["channel"])
	}
	info, ok := data["session_info"].(map[string]any)
	if !ok || info["channel_switches"] != float64(0) {
		t.Fatalf("unexpected session_info: %v", data["session_info"])
	}
}

func TestSendChatMessage_InvalidJSON(t *testing.T) {
	app := newTestApp(t, &fakeProvider{reply: "ok"})

	w := postJSON(t, app.router, "/chat/message", gin.H{"message": "no user id"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if code, _ := decodeEnvelope(t, w); code != 10001 {
		t.Fatalf("expected code 10001, got %d", code)
	}
}

func TestGetChatHistory(t *testing.T) {
	app := newTestApp(t, &fakeProvider{reply: "hello"})
	ctx := context.Background()
	app.sessions.AppendMessage(ctx, "u1", "user", "first", "web")
	app.sessions.AppendMessage(ctx, "u1", "assistant", "second", "web")

	req := httptest.NewRequest(http.MethodGet, "/chat/history/u1?limit=10", nil)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	_, data := decodeEnvelope(t, w)
	if data["count"] != float64(2) {
		t.Fatalf("expected 2 messages, got %v", data["count"])
	}
}

func TestProfileAnalyzeBase64AndGet(t *testing.T) {
	app := newTestApp(t, &fakeProvider{reply: "ok"})

	// profile writes are skipped for unknown users, so the session must exist
	app.sessions.GetOrCreate(context.Background(), "u1", "web")

	w := postJSON(t, app.router, "/profile/analyze-base64", gin.H{
		"user_id":      "u1",
		"image_base64": base64.StdEncoding.EncodeToString(warmSelfiePNG(t)),
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	_, data := decodeEnvelope(t, w)
	if data["undertone"] != "warm" {
		t.Fatalf("expected warm undertone, got %v", data["undertone"])
	}

	req := httptest.NewRequest(http.MethodGet, "/profile/u1", nil)
	get := httptest.NewRecorder()
	app.router.ServeHTTP(get, req)
	if get.Code != http.StatusOK {
		t.Fatalf("profile fetch status %d: %s", get.Code, get.Body.String())
	}
	_, stored := decodeEnvelope(t, get)
	if stored["undertone"] != "warm" {
		t.Fatalf("persisted profile missing: %v", stored)
	}
}

func TestGetProfile_AbsentIs404(t *testing.T) {
	app := newTestApp(t, &fakeProvider{reply: "ok"})

	req := httptest.NewRequest(http.MethodGet, "/profile/nobody", nil)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if code, _ := decodeEnvelope(t, w); code != 40403 {
		t.Fatalf("expected code 40403, got %d", code)
	}
}

func TestProfileAnalyzeBase64_BadPayload(t *testing.T) {
	app := newTestApp(t, &fakeProvider{reply: "ok"})

	w := postJSON(t, app.router, "/profile/analyze-base64",
		gin.H{"image_base64": "!!not-base64!!"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func postWebhookForm(t *testing.T, r *gin.Engine, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWhatsAppWebhook_TextFlow(t *testing.T) {
	app := newTestApp(t, &fakeProvider{reply: "Those jeans pair well with a white tee."})

	form := url.Values{}
	form.Set("From", "whatsapp:+919876543210")
	form.Set("Body", "what goes with blue jeans?")
	w := postWebhookForm(t, app.router, form)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<Response>") || !strings.Contains(body, "white tee") {
		t.Fatalf("unexpected twiml: %s", body)
	}

	// the turn lands in the session under the bare number
	h := app.sessions.History(context.Background(), "+919876543210", 10)
	if len(h) != 2 || h[0].Channel != "whatsapp" {
		t.Fatalf("unexpected history: %+v", h)
	}
}

func TestWhatsAppWebhook_ImageFlow(t *testing.T) {
	selfie := warmSelfiePNG(t)
	media := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(selfie)
	}))
	defer media.Close()

	app := newTestApp(t, &fakeProvider{reply: "ok"})

	form := url.Values{}
	form.Set("From", "whatsapp:+919876543210")
	form.Set("NumMedia", "1")
	form.Set("MediaUrl0", media.URL+"/media/ME1")
	form.Set("MediaContentType0", "image/jpeg")
	w := postWebhookForm(t, app.router, form)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Style analysis complete!") {
		t.Fatalf("unexpected twiml: %s", w.Body.String())
	}

	sess, ok := app.sessions.Get(context.Background(), "+919876543210")
	if !ok {
		t.Fatalf("session missing after image flow")
	}
	if sess.StyleProfile == nil || sess.StyleProfile.Undertone != "warm" {
		t.Fatalf("profile not persisted: %+v", sess.StyleProfile)
	}
	if len(sess.ConversationHistory) != 2 {
		t.Fatalf("expected photo + reply turns, got %d", len(sess.ConversationHistory))
	}
}

func TestWhatsAppWebhook_ProviderDownStillAnswers(t *testing.T) {
	app := newTestApp(t, &fakeProvider{err: context.DeadlineExceeded})

	form := url.Values{}
	form.Set("From", "whatsapp:+919876543210")
	form.Set("Body", "hello?")
	w := postWebhookForm(t, app.router, form)

	if w.Code != http.StatusOK {
		t.Fatalf("gateway must always get 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), brain.FallbackReply) {
		t.Fatalf("expected fallback in twiml: %s", w.Body.String())
	}
}

func TestAdminLoginAndGuardedRoutes(t *testing.T) {
	app := newTestApp(t, &fakeProvider{reply: "ok"})

	// wrong password
	w := postJSON(t, app.router, "/admin/login", gin.H{"password": "nope"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	// correct password yields a token
	w = postJSON(t, app.router, "/admin/login", gin.H{"password": "admin-pass"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", w.Code, w.Body.String())
	}
	_, data := decodeEnvelope(t, w)
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatalf("token missing: %v", data)
	}

	// guarded route without a token
	req := httptest.NewRequest(http.MethodGet, "/analytics/dashboard", nil)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	// guarded route with the token
	req = httptest.NewRequest(http.MethodGet, "/analytics/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status %d: %s", rec.Code, rec.Body.String())
	}
}

func TestClearSession_Admin(t *testing.T) {
	app := newTestApp(t, &fakeProvider{reply: "ok"})
	app.sessions.GetOrCreate(context.Background(), "u1", "web")

	w := postJSON(t, app.router, "/admin/login", gin.H{"password": "admin-pass"}, nil)
	_, data := decodeEnvelope(t, w)
	token, _ := data["token"].(string)

	req := httptest.NewRequest(http.MethodDelete, "/admin/sessions/u1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status %d", rec.Code)
	}

	if _, ok := app.sessions.Get(context.Background(), "u1"); ok {
		t.Fatalf("session survived clear")
	}

	// deleting again is still a success
	req = httptest.NewRequest(http.MethodDelete, "/admin/sessions/u1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	app.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("repeat clear status %d", rec.Code)
	}
}
