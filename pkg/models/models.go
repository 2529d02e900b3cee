package models

import "time"

// AccessEntry is the access record shipped to Kafka and indexed by the log keeper.
type AccessEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	IP         string    `json:"ip"`
	StatusCode int       `json:"status_code"`
	RequestID  string    `json:"request_id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Duration   float64   `json:"duration_sec"`
	Service    string    `json:"service"`
}

// DocumentID identifies the entry in the search index.
func (e AccessEntry) DocumentID() string {
	return e.Service + e.RequestID
}
