package models

import "time"

// Session describes the live profile mirror held for one identity.
type Session struct {
	IdentityRef string    `json:"identityRef"`
	StartedAt   time.Time `json:"startedAt"`
	LastSeen    time.Time `json:"lastSeen"`
	Revision    uint64    `json:"revision"`
	Loaded      bool      `json:"loaded"`
}
