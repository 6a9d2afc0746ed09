package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authDomain "github.com/tnptm/next-djchat/internal/auth/domain"
	authHTTP "github.com/tnptm/next-djchat/internal/auth/http"
	"github.com/tnptm/next-djchat/internal/config"
	messageHTTP "github.com/tnptm/next-djchat/internal/message/http"
	"github.com/tnptm/next-djchat/internal/metrics"
	"github.com/tnptm/next-djchat/internal/notify"
	"github.com/tnptm/next-djchat/internal/realtime"
	roomHTTP "github.com/tnptm/next-djchat/internal/room/http"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type mockTokenVerifier struct {
	mock.Mock
}

func (m *mockTokenVerifier) Verify(ctx context.Context, token string) (*authDomain.Principal, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.Principal), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var alice = &authDomain.Principal{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}

// newTestServer wires the full router. Room and message handlers have no use case
// behind them, so tests only send requests that are answered before reaching them.
func newTestServer(t *testing.T, db *sql.DB, busReady <-chan struct{}) *Server {
	t.Helper()
	logger := testLogger()

	verifier := &mockTokenVerifier{}
	verifier.On("Verify", mock.Anything, "good").Return(alice, nil)
	verifier.On("Verify", mock.Anything, mock.Anything).Return(nil, authDomain.ErrInvalidCredential)

	bus := notify.NewBus(notify.NewMemoryBroadcaster(), "test", metrics.NewNoOpRealtimeMetrics(), logger)
	wsHandler := realtime.NewHandler(verifier, bus, realtime.HandlerConfig{}, metrics.NewNoOpRealtimeMetrics(), logger)

	server := NewServer(db, "localhost", 0, logger)
	server.SetupRouter(
		t.Context(),
		&config.Config{},
		verifier,
		authHTTP.NewCurrentUserHandler(logger),
		roomHTTP.NewRoomHandler(nil, logger),
		messageHTTP.NewMessageHandler(nil, func(string) string { return "" }, 1024, logger),
		wsHandler,
		busReady,
		nil,
		"test",
	)
	return server
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func serve(server *Server, method, path string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	server.GetHandler().ServeHTTP(w, req)
	return w
}

func decodeReadiness(t *testing.T, w *httptest.ResponseRecorder) (string, map[string]any) {
	t.Helper()
	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	components, ok := response["components"].(map[string]any)
	require.True(t, ok)
	return response["status"].(string), components
}

func TestServer_Health(t *testing.T) {
	w := serve(newTestServer(t, nil, nil), http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestServer_Readiness(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		dbMock.ExpectPing()

		w := serve(newTestServer(t, db, closedChan()), http.MethodGet, "/ready")

		assert.Equal(t, http.StatusOK, w.Code)
		status, components := decodeReadiness(t, w)
		assert.Equal(t, "ready", status)
		assert.Equal(t, "ok", components["database"])
		assert.Equal(t, "ok", components["notifications"])
		assert.NoError(t, dbMock.ExpectationsWereMet())
	})

	t.Run("no database", func(t *testing.T) {
		w := serve(newTestServer(t, nil, closedChan()), http.MethodGet, "/ready")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		status, components := decodeReadiness(t, w)
		assert.Equal(t, "not_ready", status)
		assert.Equal(t, "error", components["database"])
	})

	t.Run("database ping fails", func(t *testing.T) {
		db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		dbMock.ExpectPing().WillReturnError(errors.New("connection refused"))

		w := serve(newTestServer(t, db, closedChan()), http.MethodGet, "/ready")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		_, components := decodeReadiness(t, w)
		assert.Equal(t, "error", components["database"])
		assert.Equal(t, "ok", components["notifications"])
	})

	t.Run("bus not listening", func(t *testing.T) {
		db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		dbMock.ExpectPing()

		w := serve(newTestServer(t, db, make(chan struct{})), http.MethodGet, "/ready")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		_, components := decodeReadiness(t, w)
		assert.Equal(t, "ok", components["database"])
		assert.Equal(t, "error", components["notifications"])
	})
}

func TestServer_APIRequiresAuthentication(t *testing.T) {
	server := newTestServer(t, nil, nil)
	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/v1/me"},
		{http.MethodGet, "/v1/rooms"},
		{http.MethodPost, "/v1/rooms"},
		{http.MethodGet, "/v1/rooms/" + uuid.NewString()},
		{http.MethodDelete, "/v1/rooms/" + uuid.NewString()},
		{http.MethodPost, "/v1/rooms/" + uuid.NewString() + "/members"},
		{http.MethodGet, "/v1/rooms/" + uuid.NewString() + "/messages"},
		{http.MethodPost, "/v1/rooms/" + uuid.NewString() + "/messages"},
		{http.MethodGet, "/v1/rooms/" + uuid.NewString() + "/messages/" + uuid.NewString()},
		{http.MethodPost, "/v1/rooms/" + uuid.NewString() + "/files"},
		{http.MethodGet, "/v1/attachments/" + uuid.NewString()},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, serve(server, route.method, route.path).Code)
			assert.Equal(t, http.StatusUnauthorized,
				serve(server, route.method, route.path, "Authorization", "Bearer forged").Code)
		})
	}
}

func TestServer_CurrentUser(t *testing.T) {
	w := serve(newTestServer(t, nil, nil), http.MethodGet, "/v1/me", "Authorization", "Bearer good")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"id":"`+alice.ID.String()+`","username":"alice","email":"alice@example.com"}`,
		w.Body.String(),
	)
}

func TestServer_WebsocketRejectsMissingToken(t *testing.T) {
	w := serve(newTestServer(t, nil, nil), http.MethodGet, "/ws/rooms")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServer_NoMetricsEndpoint(t *testing.T) {
	w := serve(newTestServer(t, nil, nil), http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_ShutdownGracefully(t *testing.T) {
	server := newTestServer(t, nil, nil)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(context.Background())
	}()
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestCustomLoggerMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(requestid.New(), CustomLoggerMiddleware(testLogger()))
	router.GET("/boom", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	})
	router.GET("/ok", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	for path, code := range map[string]int{"/ok": http.StatusOK, "/boom": http.StatusInternalServerError} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, code, w.Code)
	}
}

func TestRecovery(t *testing.T) {
	router := gin.New()
	router.Use(gin.Recovery(), CustomLoggerMiddleware(testLogger()))
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetricsServer_Endpoints(t *testing.T) {
	provider, err := metrics.NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	metricsServer := NewMetricsServer("localhost", 0, testLogger(), provider)

	w := httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestMetricsServer_WithoutProvider(t *testing.T) {
	metricsServer := NewMetricsServer("127.0.0.1", 9091, testLogger(), nil)

	w := httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "127.0.0.1:9091", metricsServer.server.Addr)
}
