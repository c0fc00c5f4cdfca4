package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	barhandler "marketsync/internal/feature/bars/transport/handler"
	namehandler "marketsync/internal/feature/names/transport/handler"
	symbollisthandler "marketsync/internal/feature/symbollist/transport/handler"
	platformhandler "marketsync/internal/platform/http/handler"
)

func NewRouter(health *platformhandler.HealthHandler, bars *barhandler.BarsHandler,
	names *namehandler.NamesHandler, symbol *symbollisthandler.SymbolHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// 導通確認用
	for _, m := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		r.Handle(m, "/healthz", health.Health)
	}

	// 参照系のみ。書き込みは同期処理からのみ行う
	r.GET("/bars/:symbol", bars.GetBars)
	r.GET("/names", names.Status)
	r.GET("/names/:symbol", names.GetName)
	r.GET("/symbols", symbol.List)

	return r
}
