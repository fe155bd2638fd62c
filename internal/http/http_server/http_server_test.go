package http_server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"meetingrelay/internal/fabric"
	"meetingrelay/internal/presence"
	"meetingrelay/internal/relay"
	"meetingrelay/internal/ws"
)

func TestHandlerRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := relay.New(presence.NewTable(), fabric.NewLocal())
	wsSrv := ws.NewWsServer(engine, ws.Options{ReadLimit: 1024, SendBuffer: 4})
	h := NewHttpServer(context.Background(), 8085, wsSrv, engine).Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// Plain GET without upgrade headers is refused by the upgrader.
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
