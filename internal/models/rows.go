package models

// DealRow is the persisted shape of a Deal. The same struct backs all four
// deal tables; callers pick the table with gorm's Table().
type DealRow struct {
	ID              uint     `gorm:"primaryKey" json:"-"`
	DealDate        *string  `json:"deal_date"`
	Symbol          string   `json:"symbol"`
	SecurityName    string   `json:"security_name"`
	ParticipantName string   `json:"participant_name"`
	Action          string   `json:"action"`
	QuantityTraded  *float64 `json:"quantity_traded"`
	TradePrice      *float64 `json:"trade_price"`
	Remarks         string   `json:"remarks"`
	Source          string   `json:"source"`
	DealCategory    string   `json:"deal_category"`
	FetchDate       string   `gorm:"not null" json:"fetch_date"`
}

// MonitoredInvestor is a row of the watchlist table.
type MonitoredInvestor struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	InvestorName string `gorm:"not null" json:"investor_name"`
	DisplayName  string `json:"display_name"`
	Category     string `json:"category"`
	Priority     int    `json:"priority"`
	IsActive     bool   `json:"is_active"`
}

// TableName overrides gorm's pluralized default.
func (MonitoredInvestor) TableName() string {
	return "monitored_investors"
}
