// Package types contains common types used across the application
package types

// Ranked is one entry of a top-N listing.
type Ranked struct {
	Rank   int    `json:"rank"`
	ID     string `json:"id"`
	Source string `json:"source,omitempty"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Match  string `json:"match,omitempty"`
}
