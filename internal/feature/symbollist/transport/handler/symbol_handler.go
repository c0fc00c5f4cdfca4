package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketsync/internal/feature/symbollist/domain/entity"
	"marketsync/internal/feature/symbollist/transport/http/dto"
)

// SymbolUsecase lists the instrument universe.
// Following Go convention: interfaces are defined by the consumer (handler), not the provider (usecase).
type SymbolUsecase interface {
	ListActiveSymbols(ctx context.Context) ([]entity.Symbol, error)
}

// SymbolHandler は銘柄一覧を返すハンドラです。
type SymbolHandler struct {
	uc SymbolUsecase
}

func NewSymbolHandler(uc SymbolUsecase) *SymbolHandler {
	return &SymbolHandler{uc: uc}
}

// List は設定された全銘柄を返します。
//
// GET /symbols
func (h *SymbolHandler) List(c *gin.Context) {
	symbols, err := h.uc.ListActiveSymbols(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]dto.SymbolItem, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, dto.SymbolItem{
			Code:     s.Code,
			Name:     s.Name,
			Class:    string(s.Class),
			Currency: s.Currency,
			HasBars:  s.HasBars,
		})
	}
	c.JSON(http.StatusOK, out)
}
