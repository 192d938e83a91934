package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManikLakhanpal/Tube-Pay/internal/cache"
	"github.com/ManikLakhanpal/Tube-Pay/internal/domain"
	"github.com/ManikLakhanpal/Tube-Pay/internal/repository"
	"github.com/ManikLakhanpal/Tube-Pay/internal/service"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/database"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/gateway"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/jwt"
	"github.com/ManikLakhanpal/Tube-Pay/pkg/middleware"
)

const gatewaySecret = "gateway-secret"

type testServer struct {
	router *gin.Engine
	tokens *jwt.Manager
	mr     *miniredis.Miniredis
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     fmt.Sprintf("file:api_%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, &domain.UserModel{}, &domain.StreamModel{}, &domain.PaymentModel{}))
	t.Cleanup(func() { _ = database.Close(db) })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	rc := cache.NewRedisCache(client, cache.Options{OpTimeout: 200 * time.Millisecond})

	streamRepo := repository.NewGormStreamRepository(db)
	users := service.NewUserService(repository.NewGormUserRepository(db), rc)
	streams := service.NewStreamService(streamRepo, rc)
	verifier, err := gateway.NewVerifier(gatewaySecret)
	require.NoError(t, err)
	payments := service.NewPaymentService(repository.NewGormPaymentRepository(db), streamRepo, rc, nil,
		verifier, service.RateLimit{Limit: 3, Window: time.Minute})

	tokens, err := jwt.NewManager("test-secret", time.Hour, "tube-pay")
	require.NoError(t, err)

	r := gin.New()
	NewHandler(users, streams, payments, rc, tokens, middleware.NewAuthMiddleware(tokens)).RegisterRoutes(r)
	return &testServer{router: r, tokens: tokens, mr: mr}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

// login registers email and returns the user with an access token.
func (s *testServer) login(t *testing.T, email string) (domain.User, string) {
	t.Helper()

	identity, err := s.tokens.GenerateIdentityToken(email, "", time.Minute)
	require.NoError(t, err)
	code, env := s.do(t, http.MethodPost, "/api/v1/auth/login", identity, nil)
	require.Contains(t, []int{http.StatusOK, http.StatusCreated}, code)

	var resp domain.LoginResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return *resp.User, resp.AccessToken
}

// loginStreamer registers email, upgrades it to STREAMER and logs in again
// so the access token carries the new role.
func (s *testServer) loginStreamer(t *testing.T, email string) (domain.User, string) {
	t.Helper()

	_, token := s.login(t, email)
	code, _ := s.do(t, http.MethodPatch, "/api/v1/users/me", token, gin.H{"role": "STREAMER"})
	require.Equal(t, http.StatusOK, code)
	return s.login(t, email)
}

// settle is a status body carrying the gateway's proof for orderID.
func settle(orderID string) gin.H {
	gwID := "gw_" + orderID
	return gin.H{
		"status":           "success",
		"gatewayPaymentId": gwID,
		"signature":        gateway.Signature(gatewaySecret, orderID, gwID),
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	identity, err := s.tokens.GenerateIdentityToken("new@example.com", "Newbie", time.Minute)
	require.NoError(t, err)

	code, _ := s.do(t, http.MethodPost, "/api/v1/auth/login", identity, nil)
	assert.Equal(t, http.StatusCreated, code)
	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", identity, nil)
	assert.Equal(t, http.StatusOK, code)

	// Access tokens cannot be exchanged again.
	_, access := s.login(t, "new@example.com")
	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", access, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := s.do(t, http.MethodGet, "/api/v1/users/me", access, nil)
	require.Equal(t, http.StatusOK, code)
	var me domain.User
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "Newbie", me.Name)
}

func TestDonationFlow(t *testing.T) {
	s := newTestServer(t)
	viewer, viewerToken := s.login(t, "u1@example.com")
	_, streamerToken := s.loginStreamer(t, "u2@example.com")

	code, env := s.do(t, http.MethodPost, "/api/v1/streams", streamerToken, gin.H{"title": "s1"})
	require.Equal(t, http.StatusCreated, code)
	var stream domain.Stream
	require.NoError(t, json.Unmarshal(env.Data, &stream))

	code, _ = s.do(t, http.MethodGet, "/api/v1/streams/live", "", nil)
	require.Equal(t, http.StatusOK, code)

	order := gin.H{"orderId": "pay_abc", "amount": 100, "streamId": stream.ID}
	code, _ = s.do(t, http.MethodPost, "/api/v1/payments", viewerToken, order)
	require.Equal(t, http.StatusCreated, code)
	code, env = s.do(t, http.MethodPost, "/api/v1/payments", viewerToken, order)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	code, _ = s.do(t, http.MethodPut, "/api/v1/payments/pay_abc/status", streamerToken, settle("pay_abc"))
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(t, http.MethodPut, "/api/v1/payments/pay_abc/status", viewerToken, settle("pay_abc"))
	require.Equal(t, http.StatusOK, code)
	var settled domain.Payment
	require.NoError(t, json.Unmarshal(env.Data, &settled))
	assert.Equal(t, domain.PaymentSuccess, settled.Status)
	assert.Equal(t, viewer.ID, settled.UserID)

	code, env = s.do(t, http.MethodGet, "/api/v1/streams/"+stream.ID+"/donations", "", nil)
	require.Equal(t, http.StatusOK, code)
	var total domain.DonationTotal
	require.NoError(t, json.Unmarshal(env.Data, &total))
	assert.InDelta(t, 100, total.Total, 1e-9)

	code, env = s.do(t, http.MethodGet, "/api/v1/payments/received?status=SUCCESS", streamerToken, nil)
	require.Equal(t, http.StatusOK, code)
	var page domain.PaymentPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Payments, 1)
	assert.Equal(t, 1, page.Pagination.TotalCount)

	code, env = s.do(t, http.MethodGet, "/api/v1/streams/"+stream.ID+"/stats", "", nil)
	require.Equal(t, http.StatusOK, code)
	var stats domain.StreamPaymentStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.EqualValues(t, 1, stats.SuccessfulPayments)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	_, token := s.login(t, "u1@example.com")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"unknown stream", http.MethodGet, "/api/v1/streams/nope", "", nil, http.StatusNotFound},
		{"unknown user", http.MethodGet, "/api/v1/users/nope", "", nil, http.StatusNotFound},
		{"unknown payment", http.MethodGet, "/api/v1/payments/nope", token, nil, http.StatusNotFound},
		{"no token", http.MethodGet, "/api/v1/payments/sent", "", nil, http.StatusUnauthorized},
		{"missing fields", http.MethodPost, "/api/v1/payments", token, gin.H{"amount": 5}, http.StatusBadRequest},
		{"negative amount", http.MethodPost, "/api/v1/payments", token, gin.H{"orderId": "o1", "amount": -5, "streamId": "nope"}, http.StatusBadRequest},
		{"payment to unknown stream", http.MethodPost, "/api/v1/payments", token, gin.H{"orderId": "o2", "amount": 5, "streamId": "nope"}, http.StatusNotFound},
		{"bad status filter", http.MethodGet, "/api/v1/payments/sent?status=refunded", token, nil, http.StatusBadRequest},
		{"self-assigned admin", http.MethodPatch, "/api/v1/users/me", token, gin.H{"role": "ADMIN"}, http.StatusForbidden},
		{"bad payment status", http.MethodPut, "/api/v1/payments/nope/status", token, gin.H{"status": "PAID"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := s.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, code)
			assert.False(t, env.Success)
		})
	}
}

func TestCreatePaymentRateLimited(t *testing.T) {
	s := newTestServer(t)
	_, token := s.login(t, "u1@example.com")
	_, streamerToken := s.loginStreamer(t, "u2@example.com")

	_, env := s.do(t, http.MethodPost, "/api/v1/streams", streamerToken, gin.H{"title": "s1"})
	var stream domain.Stream
	require.NoError(t, json.Unmarshal(env.Data, &stream))

	for i := 0; i < 3; i++ {
		code, _ := s.do(t, http.MethodPost, "/api/v1/payments", token,
			gin.H{"orderId": fmt.Sprintf("o%d", i), "amount": 1, "streamId": stream.ID})
		require.Equal(t, http.StatusCreated, code)
	}
	code, env := s.do(t, http.MethodPost, "/api/v1/payments", token,
		gin.H{"orderId": "o9", "amount": 1, "streamId": stream.ID})
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "RATE_LIMITED", env.Error.Code)
}

func TestStreamWritesNeedStreamerRole(t *testing.T) {
	s := newTestServer(t)
	_, userToken := s.login(t, "u1@example.com")
	_, streamerToken := s.loginStreamer(t, "u2@example.com")

	code, env := s.do(t, http.MethodPost, "/api/v1/streams", userToken, gin.H{"title": "s1"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, env.Success)

	code, env = s.do(t, http.MethodPost, "/api/v1/streams", streamerToken, gin.H{"title": "s1"})
	require.Equal(t, http.StatusCreated, code)
	var stream domain.Stream
	require.NoError(t, json.Unmarshal(env.Data, &stream))

	code, _ = s.do(t, http.MethodPatch, "/api/v1/streams/"+stream.ID, userToken, gin.H{"title": "mine"})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodDelete, "/api/v1/streams/"+stream.ID, userToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodDelete, "/api/v1/streams/"+stream.ID, streamerToken, nil)
	assert.Equal(t, http.StatusNoContent, code)
}

func TestPaymentAccess(t *testing.T) {
	s := newTestServer(t)
	_, viewerToken := s.login(t, "u1@example.com")
	_, streamerToken := s.loginStreamer(t, "u2@example.com")
	_, strangerToken := s.login(t, "u3@example.com")

	_, env := s.do(t, http.MethodPost, "/api/v1/streams", streamerToken, gin.H{"title": "s1"})
	var stream domain.Stream
	require.NoError(t, json.Unmarshal(env.Data, &stream))
	code, _ := s.do(t, http.MethodPost, "/api/v1/payments", viewerToken,
		gin.H{"orderId": "pay_abc", "amount": 100, "streamId": stream.ID})
	require.Equal(t, http.StatusCreated, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/payments/pay_abc", viewerToken, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/payments/pay_abc", streamerToken, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/payments/pay_abc", strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	// The sender alone cannot mark an order paid.
	code, _ = s.do(t, http.MethodPut, "/api/v1/payments/pay_abc/status", viewerToken, gin.H{"status": "SUCCESS"})
	assert.Equal(t, http.StatusForbidden, code)
	forged := settle("pay_abc")
	forged["signature"] = gateway.Signature("wrong-secret", "pay_abc", "gw_pay_abc")
	code, _ = s.do(t, http.MethodPut, "/api/v1/payments/pay_abc/status", viewerToken, forged)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodPut, "/api/v1/payments/pay_abc/status", viewerToken, settle("pay_abc"))
	require.Equal(t, http.StatusOK, code)
	code, env = s.do(t, http.MethodPut, "/api/v1/payments/pay_abc/status", viewerToken, gin.H{"status": "FAILED"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	code, env = s.do(t, http.MethodGet, "/api/v1/payments/sent?page=1001", viewerToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
}

func TestCacheEndpoints(t *testing.T) {
	s := newTestServer(t)
	user, userToken := s.login(t, "u1@example.com")
	adminToken, _, err := s.tokens.GenerateAccessToken("admin-1", "ops@example.com", string(domain.RoleAdmin))
	require.NoError(t, err)

	code, _ := s.do(t, http.MethodGet, "/api/v1/cache/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/cache/stats", userToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/cache/stats", adminToken, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/payments/sent", userToken, nil)
	require.Equal(t, http.StatusOK, code)
	require.True(t, s.mr.Exists("user_sent_payments:"+user.ID+":all:1"))

	code, _ = s.do(t, http.MethodDelete, "/api/v1/cache/payments", userToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, env := s.do(t, http.MethodDelete, "/api/v1/cache/payments", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	var cleared struct {
		Deleted int `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &cleared))
	assert.Equal(t, 1, cleared.Deleted)
	assert.True(t, s.mr.Exists("user:"+user.ID))

	s.mr.Close()
	code, env = s.do(t, http.MethodGet, "/api/v1/cache/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.False(t, env.Success)
}

func TestDeleteMeRevokesTokens(t *testing.T) {
	s := newTestServer(t)
	_, token := s.login(t, "u1@example.com")

	code, _ := s.do(t, http.MethodDelete, "/api/v1/users/me", token, nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}
