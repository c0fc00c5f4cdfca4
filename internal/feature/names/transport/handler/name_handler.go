// Package handler provides the HTTP handlers of the name cache.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketsync/internal/feature/names/domain/entity"
	"marketsync/internal/feature/names/transport/http/dto"
	"marketsync/internal/feature/names/usecase"
)

const statusSampleSize = 5

// NamesUsecase is the read side of the name cache.
type NamesUsecase interface {
	Lookup(ctx context.Context, symbol string) (entity.NameEntry, bool, error)
	Status(ctx context.Context, sampleSize int) (usecase.CacheStatus, error)
}

// NamesHandler はキャッシュ済みの銘柄名を返すハンドラです。外部APIは呼びません。
type NamesHandler struct {
	uc NamesUsecase
}

func NewNamesHandler(uc NamesUsecase) *NamesHandler {
	return &NamesHandler{uc: uc}
}

// GetName は銘柄の表示名を返します。キャッシュにない場合はシンボルを返します。
//
// GET /names/:symbol
func (h *NamesHandler) GetName(c *gin.Context) {
	symbol := c.Param("symbol")
	e, ok, err := h.uc.Lookup(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	e.Symbol = symbol
	resp := dto.NameResponse{Symbol: symbol, DisplayName: e.DisplayName(), Cached: ok}
	if ok {
		resp.LongName = e.LongName
		resp.ShortName = e.ShortName
		resp.FetchOK = e.FetchOK
		resp.LastUpdated = e.LastUpdated.Format(time.DateOnly)
	}
	c.JSON(http.StatusOK, resp)
}

// Status はキャッシュの件数と最近更新されたエントリを返します。
//
// GET /names
func (h *NamesHandler) Status(c *gin.Context) {
	st, err := h.uc.Status(c.Request.Context(), statusSampleSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	resp := dto.StatusResponse{
		Total:   st.Total,
		Recent:  st.Recent,
		Old:     st.Old,
		Samples: make([]dto.NameSample, 0, len(st.Samples)),
	}
	for _, s := range st.Samples {
		resp.Samples = append(resp.Samples, dto.NameSample{
			Symbol:      s.Symbol,
			Name:        s.StatusLabel(),
			LastUpdated: s.LastUpdated.Format(time.DateOnly),
		})
	}
	c.JSON(http.StatusOK, resp)
}
