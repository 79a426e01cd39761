package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SlpAus/aura-wager-backend/internal/bet"
	"github.com/SlpAus/aura-wager-backend/internal/chat"
	"github.com/SlpAus/aura-wager-backend/internal/leaderboard"
	"github.com/SlpAus/aura-wager-backend/internal/ledger"
	"github.com/SlpAus/aura-wager-backend/internal/platform/config"
	"github.com/SlpAus/aura-wager-backend/internal/platform/database"
	"github.com/SlpAus/aura-wager-backend/internal/platform/metadata"
	"github.com/SlpAus/aura-wager-backend/internal/platform/startup"
	"github.com/SlpAus/aura-wager-backend/internal/user"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const testInternalToken = "test-internal-token"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := startup.InitializeApplication(db); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	users := user.NewRepository(db, 1000)
	board := leaderboard.New(rdb, nil)
	ledgerSvc := ledger.NewService(db, users, ledger.Options{DailyBonus: 50, DailyBonusInterval: 24 * time.Hour}, board)
	directory := chat.NewDirectory(db)
	betSvc := bet.NewService(db, ledgerSvc, directory, bet.Options{CreationCost: 10})

	return NewRouter(config.ServerConfig{
		Mode:          gin.TestMode,
		Cors:          config.CorsConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		InternalToken: testInternalToken,
	}, Handlers{
		Users:       users,
		Bets:        bet.NewHandler(betSvc),
		Ledger:      ledger.NewHandler(ledgerSvc),
		Leaderboard: leaderboard.NewHandler(board),
		Chat:        chat.NewHandler(directory),
		Sweeps:      metadata.NewRecorder(db),
	})
}

func do(t *testing.T, r http.Handler, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return doWithHeaders(t, r, method, path, body, map[string]string{user.HeaderName: userID})
}

// join 通过内部接口把用户加入聊天室
func join(t *testing.T, r http.Handler, chatID, userID string) {
	t.Helper()
	w := doWithHeaders(t, r, http.MethodPut, "/api/internal/chats/"+chatID+"/members/"+userID, nil,
		map[string]string{InternalTokenHeader: testInternalToken})
	expectStatus(t, w, http.StatusNoContent)
}

func doWithHeaders(t *testing.T, r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, want, w.Body.String())
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t)
	expectStatus(t, do(t, r, http.MethodGet, "/healthz", "", nil), http.StatusOK)
}

func TestAuthenticatedRoutesRequireUserHeader(t *testing.T) {
	r := newTestRouter(t)
	expectStatus(t, do(t, r, http.MethodGet, "/api/users/alice/aura", "", nil), http.StatusUnauthorized)
}

func TestInternalRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)
	path := "/api/internal/chats/c1/members/mallory"

	expectStatus(t, do(t, r, http.MethodPut, path, "mallory", nil), http.StatusUnauthorized)
	expectStatus(t, doWithHeaders(t, r, http.MethodPut, path, nil,
		map[string]string{InternalTokenHeader: "guess"}), http.StatusForbidden)
	expectStatus(t, do(t, r, http.MethodGet, "/api/internal/expiry", "", nil), http.StatusUnauthorized)

	// 没有加入成功，自然不能在该聊天室创建下注
	w := do(t, r, http.MethodPost, "/api/chats/c1/bets", "mallory", gin.H{
		"betType":     "self",
		"description": "sneak in",
		"deadline":    time.Now().UTC().Add(2 * time.Hour),
	})
	expectStatus(t, w, http.StatusForbidden)

	join(t, r, "c1", "mallory")
	expectStatus(t, doWithHeaders(t, r, http.MethodDelete, path, nil,
		map[string]string{InternalTokenHeader: testInternalToken}), http.StatusNoContent)
}

func TestInternalRoutesDisabledWithoutToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/internal", InternalTokenMiddleware(""), func(c *gin.Context) { c.Status(http.StatusOK) })
	w := doWithHeaders(t, router, http.MethodGet, "/internal", nil, map[string]string{InternalTokenHeader: "anything"})
	expectStatus(t, w, http.StatusForbidden)
}

func TestLoginOnlyForCurrentUser(t *testing.T) {
	r := newTestRouter(t)
	expectStatus(t, do(t, r, http.MethodPost, "/api/users/alice/login", "bob", nil), http.StatusForbidden)

	w := do(t, r, http.MethodPost, "/api/users/alice/login", "alice", nil)
	expectStatus(t, w, http.StatusOK)
	var result ledger.LoginResult
	decode(t, w, &result)
	if !result.BonusClaimed || result.Balance != 1050 {
		t.Fatalf("login = %+v, want bonus claimed and 1050", result)
	}
}

func TestWagerLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)
	for _, id := range []string{"alice", "bob", "dave"} {
		join(t, r, "c1", id)
	}

	w := do(t, r, http.MethodPost, "/api/chats/c1/bets", "alice", gin.H{
		"betType":     "self",
		"description": "run 5k before friday",
		"deadline":    time.Now().UTC().Add(2 * time.Hour),
	})
	expectStatus(t, w, http.StatusCreated)
	var created bet.Bet
	decode(t, w, &created)
	if created.Status != bet.StatusActive || created.CreationCost != 10 {
		t.Fatalf("created = %+v", created)
	}
	betPath := "/api/bets/" + created.ID

	// 非成员不能下注
	expectStatus(t, do(t, r, http.MethodPost, betPath+"/stakes", "carol", gin.H{"side": "no", "amount": 20}), http.StatusForbidden)
	// 余额不足
	expectStatus(t, do(t, r, http.MethodPost, betPath+"/stakes", "dave", gin.H{"side": "no", "amount": 5000}), http.StatusPaymentRequired)

	expectStatus(t, do(t, r, http.MethodPost, betPath+"/stakes", "bob", gin.H{"side": "no", "amount": 20}), http.StatusCreated)
	expectStatus(t, do(t, r, http.MethodPost, betPath+"/stakes", "bob", gin.H{"side": "yes", "amount": 20}), http.StatusConflict)
	expectStatus(t, do(t, r, http.MethodPost, betPath+"/stakes", "alice", gin.H{"side": "yes", "amount": 30}), http.StatusCreated)

	// 只有创建者可以结算自我挑战
	expectStatus(t, do(t, r, http.MethodPost, betPath+"/resolve", "bob", gin.H{"outcome": "yes"}), http.StatusForbidden)
	// 非法结果
	expectStatus(t, do(t, r, http.MethodPost, betPath+"/resolve", "alice", gin.H{"outcome": "maybe"}), http.StatusBadRequest)

	w = do(t, r, http.MethodPost, betPath+"/resolve", "alice", gin.H{"outcome": "yes"})
	expectStatus(t, w, http.StatusOK)
	var res bet.Resolution
	decode(t, w, &res)
	if res.TotalPot != 50 || res.TotalPaid != 50 || res.Dust != 0 {
		t.Fatalf("resolution = %+v", res)
	}
	expectStatus(t, do(t, r, http.MethodPost, betPath+"/resolve", "alice", gin.H{"outcome": "yes"}), http.StatusConflict)

	w = do(t, r, http.MethodGet, "/api/users/alice/aura", "alice", nil)
	expectStatus(t, w, http.StatusOK)
	var stats ledger.Stats
	decode(t, w, &stats)
	if stats.Balance != 1010 || stats.Held != 0 || stats.BetsCompleted != 1 || stats.VibeScore != 110 {
		t.Fatalf("alice stats = %+v", stats)
	}

	w = do(t, r, http.MethodGet, "/api/users/bob/aura/audit", "bob", nil)
	expectStatus(t, w, http.StatusOK)
	var audit ledger.Audit
	decode(t, w, &audit)
	if !audit.Consistent || audit.Balance != 980 {
		t.Fatalf("bob audit = %+v", audit)
	}

	// 流水只能本人查看
	expectStatus(t, do(t, r, http.MethodGet, "/api/users/alice/aura/transactions", "bob", nil), http.StatusForbidden)
	w = do(t, r, http.MethodGet, "/api/users/alice/aura/transactions?limit=10", "alice", nil)
	expectStatus(t, w, http.StatusOK)
	var history struct {
		Transactions []ledger.Transaction `json:"transactions"`
	}
	decode(t, w, &history)
	if len(history.Transactions) != 3 || history.Transactions[0].Type != ledger.TypeBetWin {
		t.Fatalf("alice history = %+v", history.Transactions)
	}

	w = do(t, r, http.MethodGet, "/api/leaderboard/alice", "", nil)
	expectStatus(t, w, http.StatusOK)
	var entry leaderboard.Entry
	decode(t, w, &entry)
	if entry.Rank != 1 || entry.VibeScore != 110 {
		t.Fatalf("leaderboard entry = %+v", entry)
	}

	w = do(t, r, http.MethodGet, betPath, "bob", nil)
	expectStatus(t, w, http.StatusOK)
	expectStatus(t, do(t, r, http.MethodGet, "/api/bets/missing", "bob", nil), http.StatusNotFound)
}
