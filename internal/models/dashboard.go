package models

// DashboardStats is the admin home snapshot.
type DashboardStats struct {
	Revenue        float64    `json:"revenue"`
	Users          int        `json:"users"`
	ActiveToday    int        `json:"active_today"`
	PendingAmount  float64    `json:"pending_amount"`
	MonthlyRevenue [12]float64 `json:"monthly_revenue"`
	Year           int        `json:"year"`
}

// PendingDuesReport aggregates users carrying unpaid fees.
type PendingDuesReport struct {
	Users []PendingDue `json:"users"`
	Total float64      `json:"total"`
}
