// Package handler provides the HTTP handlers of the bars feature.
package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"marketsync/internal/feature/bars/domain/entity"
	"marketsync/internal/feature/bars/transport/http/dto"
	"marketsync/internal/feature/bars/usecase"
)

// SyncUsecase はハンドラが利用する同期処理のインターフェイスです。
// Following Go convention: interfaces are defined by the consumer (handler), not the provider (usecase).
type SyncUsecase interface {
	Sync(ctx context.Context, symbol string, g entity.Granularity, from, to time.Time) (usecase.SyncOutcome, error)
}

// BarsHandler はバーを返すハンドラです。古い場合は先に同期します。
type BarsHandler struct {
	uc SyncUsecase
}

func NewBarsHandler(uc SyncUsecase) *BarsHandler {
	return &BarsHandler{uc: uc}
}

// GetBars は指定された銘柄のバーを返します。
//
// GET /bars/:symbol?granularity=daily&from=2024-01-01&to=2024-06-30
func (h *BarsHandler) GetBars(c *gin.Context) {
	symbol := strings.TrimSpace(c.Param("symbol"))
	g, err := entity.ParseGranularity(c.DefaultQuery("granularity", string(entity.Daily)))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	from, err := parseBound(c.Query("from"), false)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid from: " + boundFormat})
		return
	}
	to, err := parseBound(c.Query("to"), true)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid to: " + boundFormat})
		return
	}

	out, err := h.uc.Sync(c.Request.Context(), symbol, g, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}

	resp := dto.BarsResponse{
		Symbol:      symbol,
		Granularity: string(g),
		Decision:    string(out.Decision),
		Fetched:     out.Fetched,
		Bars:        make([]dto.BarResponse, 0, len(out.Bars)),
	}
	if out.Err != nil {
		resp.Warning = out.Err.Error()
	}
	for _, b := range out.Bars {
		resp.Bars = append(resp.Bars, dto.BarResponse{
			Time:   formatTime(g, b.Time),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	c.JSON(http.StatusOK, resp)
}

const boundFormat = "expected YYYY-MM-DD or RFC 3339"

// parseBound は日付（2006-01-02）または RFC 3339 をパースします。空文字は無制限です。
// 上限に日付だけを指定した場合は、その日の時間足も含むよう日末までとします。
func parseBound(s string, upper bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		if upper {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func formatTime(g entity.Granularity, t time.Time) string {
	if g == entity.Daily {
		return t.UTC().Format(time.DateOnly)
	}
	return t.UTC().Format(time.RFC3339)
}
