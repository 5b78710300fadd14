package model

import "time"

// BatchRecord is the journal entry for one served batch: which places went
// out, under which signature, and how far discovery had expanded when the
// batch was cut.
type BatchRecord struct {
	SessionID      string       `json:"session_id"`
	Signature      string       `json:"signature"`
	State          LoadingState `json:"state"`
	RadiusMeters   float64      `json:"radius_meters"`
	ExpansionCount int          `json:"expansion_count"`
	PlaceIDs       []string     `json:"place_ids"`
	CreatedAt      time.Time    `json:"created_at"`
}
