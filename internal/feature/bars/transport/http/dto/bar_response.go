package dto

// BarResponse はAPIレスポンスのバー1本です。
type BarResponse struct {
	Time   string  `json:"time"` // 日足は日付、時間足は RFC 3339
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// BarsResponse は GET /bars/:symbol のレスポンスです。
type BarsResponse struct {
	Symbol      string        `json:"symbol"`
	Granularity string        `json:"granularity"`
	Decision    string        `json:"decision"`
	Fetched     int           `json:"fetched"`
	Warning     string        `json:"warning,omitempty"` // 外部取得に失敗した理由
	Bars        []BarResponse `json:"bars"`
}

// ErrorResponse はエラー時のレスポンスです。
type ErrorResponse struct {
	Error string `json:"error"`
}
