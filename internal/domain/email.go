package domain

import "time"

// EmailDirection distinguishes sent from received correspondence.
type EmailDirection string

const (
	EmailDirectionInbound  EmailDirection = "INBOUND"
	EmailDirectionOutbound EmailDirection = "OUTBOUND"
)

// CaseEmail captures one piece of correspondence with the market partner.
// Only metadata and a body preview are held here; delivery and raw
// message storage belong to external collaborators.
type CaseEmail struct {
	ID          string
	CaseID      string
	Direction   EmailDirection
	Address     string
	Subject     string
	BodyPreview string
	RecordedBy  string
	CreatedAt   time.Time
}
