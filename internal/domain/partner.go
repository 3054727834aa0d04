package domain

import "time"

// MarketPartner is a directory entry for an external counterpart.
// The directory is maintained elsewhere; this service only looks up
// entries by code when opening or sending a case.
type MarketPartner struct {
	Code         string
	Name         string
	Role         string
	ContactEmail string
	IsActive     bool
	CreatedAt    time.Time
}
