// internal/model/quota.go
package model

// QuotaStatus is the reservation ledger snapshot for one business and one
// calendar day. Used counts reserved contacts, not delivered messages.
type QuotaStatus struct {
	BusinessID   string `json:"business_id"`
	Date         string `json:"date"` // YYYY-MM-DD
	Cap          int    `json:"cap"`
	Used         int    `json:"used"`
	Available    int    `json:"available"`
	CanSendToday bool   `json:"can_send_today"`
}
