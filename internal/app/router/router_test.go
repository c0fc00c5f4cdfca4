package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	barentity "marketsync/internal/feature/bars/domain/entity"
	barhandler "marketsync/internal/feature/bars/transport/handler"
	barusecase "marketsync/internal/feature/bars/usecase"
	nameentity "marketsync/internal/feature/names/domain/entity"
	namehandler "marketsync/internal/feature/names/transport/handler"
	nameusecase "marketsync/internal/feature/names/usecase"
	symbolentity "marketsync/internal/feature/symbollist/domain/entity"
	symbollisthandler "marketsync/internal/feature/symbollist/transport/handler"
	platformhandler "marketsync/internal/platform/http/handler"
)

type stubSync struct{}

func (stubSync) Sync(_ context.Context, symbol string, g barentity.Granularity, _, _ time.Time) (barusecase.SyncOutcome, error) {
	return barusecase.SyncOutcome{Symbol: symbol, Granularity: g, Decision: barusecase.ServeCache}, nil
}

type stubNames struct{}

func (stubNames) Lookup(_ context.Context, symbol string) (nameentity.NameEntry, bool, error) {
	return nameentity.NameEntry{Symbol: symbol}, false, nil
}

func (stubNames) Status(context.Context, int) (nameusecase.CacheStatus, error) {
	return nameusecase.CacheStatus{}, nil
}

type stubSymbols struct{}

func (stubSymbols) ListActiveSymbols(context.Context) ([]symbolentity.Symbol, error) {
	return nil, nil
}

func TestNewRouter_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := NewRouter(
		platformhandler.NewHealthHandler(nil),
		barhandler.NewBarsHandler(stubSync{}),
		namehandler.NewNamesHandler(stubNames{}),
		symbollisthandler.NewSymbolHandler(stubSymbols{}),
	)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodHead, "/healthz", http.StatusOK},
		{http.MethodOptions, "/healthz", http.StatusNoContent},
		{http.MethodGet, "/bars/AAPL", http.StatusOK},
		{http.MethodGet, "/names", http.StatusOK},
		{http.MethodGet, "/names/AAPL", http.StatusOK},
		{http.MethodGet, "/symbols", http.StatusOK},
		{http.MethodPost, "/bars/AAPL", http.StatusNotFound},
		{http.MethodGet, "/candles/AAPL", http.StatusNotFound},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(tt.method, tt.path, nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, tt.want, w.Code, "%s %s", tt.method, tt.path)
	}
}
