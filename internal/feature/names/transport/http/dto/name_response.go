package dto

// NameResponse is the response of GET /names/:symbol.
type NameResponse struct {
	Symbol      string `json:"symbol"`
	DisplayName string `json:"display_name"`
	LongName    string `json:"long_name,omitempty"`
	ShortName   string `json:"short_name,omitempty"`
	Cached      bool   `json:"cached"`
	FetchOK     bool   `json:"fetch_ok"`
	LastUpdated string `json:"last_updated,omitempty"`
}

// NameSample is one entry of the status sample list.
type NameSample struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	LastUpdated string `json:"last_updated"`
}

// StatusResponse is the response of GET /names.
type StatusResponse struct {
	Total   int64        `json:"total"`
	Recent  int64        `json:"recent"`
	Old     int64        `json:"old"`
	Samples []NameSample `json:"samples"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
