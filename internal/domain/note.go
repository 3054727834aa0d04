package domain

import "time"

// CaseNote is a free-text internal note attached to a case.
type CaseNote struct {
	ID        string
	CaseID    string
	Author    string
	Body      string
	CreatedAt time.Time
}
