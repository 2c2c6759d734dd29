package models

import (
	"time"
)

// FreightLoad is a delivered freight load; the freight metric source reads
// revenue, miles and margin from billed loads.
type FreightLoad struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	VentureID    uint       `gorm:"not null;index" json:"venture_id"`
	CreatedByID  uint       `gorm:"index" json:"created_by_id"`
	Status       string     `gorm:"size:50;index" json:"status"`
	BillingDate  *time.Time `gorm:"index" json:"billing_date"`
	BillAmount   float64    `json:"bill_amount"`
	Miles        float64    `json:"miles"`
	MarginAmount float64    `json:"margin_amount"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TableName specifies the table name for FreightLoad model.
func (FreightLoad) TableName() string {
	return "freight_loads"
}

// LoadStatusDelivered marks loads that count toward freight metrics.
const LoadStatusDelivered = "DELIVERED"

// CallLog is one call-center interaction attributed to an agent.
type CallLog struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	VentureID   uint       `gorm:"not null;index" json:"venture_id"`
	AgentUserID uint       `gorm:"not null;index" json:"agent_user_id"`
	StartedAt   time.Time  `gorm:"not null;index" json:"started_at"`
	EndedAt     *time.Time `json:"ended_at"`
	DialCount   int        `gorm:"default:1" json:"dial_count"`
	Connected   bool       `json:"connected"`
	DealWon     bool       `json:"deal_won"`
}

// TableName specifies the table name for CallLog model.
func (CallLog) TableName() string {
	return "call_logs"
}

// HotelReview is a guest review; answered reviews credit the responding user.
type HotelReview struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	VentureID     uint      `gorm:"not null;index" json:"venture_id"`
	RespondedByID *uint     `gorm:"index" json:"responded_by_id"`
	ReviewDate    time.Time `gorm:"not null;index" json:"review_date"`
}

// TableName specifies the table name for HotelReview model.
func (HotelReview) TableName() string {
	return "hotel_reviews"
}

// HotelKPIDaily holds venture-level hotel KPIs (ADR / RevPAR) per day.
// These are venture averages applied to every user in the venture.
type HotelKPIDaily struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	VentureID uint      `gorm:"not null;index" json:"venture_id"`
	Date      time.Time `gorm:"type:date;not null;index" json:"date"`
	ADR       float64   `json:"adr"`
	RevPAR    float64   `json:"revpar"`
}

// TableName specifies the table name for HotelKPIDaily model.
func (HotelKPIDaily) TableName() string {
	return "hotel_kpi_daily"
}
