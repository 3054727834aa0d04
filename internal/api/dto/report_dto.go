package dto

import "time"

// BucketReportResponse pairs bucket labels with counts.
type BucketReportResponse struct {
	Labels []string `json:"labels"`
	Counts []int    `json:"counts"`
}

// DueCountResponse is the due-on-day count.
type DueCountResponse struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// SummaryResponse mirrors the server-computed KPI snapshot.
type SummaryResponse struct {
	GeneratedAt  time.Time            `json:"generatedAt"`
	TotalActive  int                  `json:"totalActive"`
	OverdueCount int                  `json:"overdueCount"`
	DueToday     int                  `json:"dueToday"`
	Aging        BucketReportResponse `json:"aging"`
	Overdue      BucketReportResponse `json:"overdue"`
}
