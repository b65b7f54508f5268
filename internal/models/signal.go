package models

import "time"

// Signal is a recommendation produced by a strategy or AI provider.
type Signal struct {
	ID         int64        `json:"id"`
	Symbol     string       `json:"symbol"`
	Action     SignalAction `json:"action"`
	Confidence float64      `json:"confidence"`
	Reasoning  string       `json:"reasoning"`
	Strategy   string       `json:"strategy"`
	AIProvider *string      `json:"ai_provider,omitempty"`
	Platform   Platform     `json:"platform"`
	CreatedAt  time.Time    `json:"created_at"`
}

// IsActionable reports whether the signal asks for a trade with enough confidence.
func (s Signal) IsActionable(threshold float64) bool {
	return s.Action != ActionHold && s.Confidence >= threshold
}
