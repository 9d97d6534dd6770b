package models

type Account struct {
	ID             int64     `json:"id"`
	TradeType      TradeType `json:"trade_type"`
	Currency       string    `json:"currency"`
	Leverage       int       `json:"leverage"`
	Balance        float64   `json:"balance"`
	Credit         float64   `json:"credit"`
	Equity         float64   `json:"equity"`
	FreeMargin     float64   `json:"free_margin"`
	UsedMargin     float64   `json:"used_margin"`
	MarginLevel    float64   `json:"margin_level"`
	FloatingProfit float64   `json:"floating_profit"`
	RealizedProfit float64   `json:"relized_profit"`
	Profit         float64   `json:"profit"`
}

// AuthResponse carries the credentials issued by the token endpoints.
type AuthResponse struct {
	AccountID    int64  `json:"account_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	SessionID    string `json:"session_id"`
	ExpiresIn    int64  `json:"expires_in"`
	IPAddress    string `json:"ip_address"`
	Scope        string `json:"scope"`
}
