package models

// MatchSide selects which population a match request searches.
type MatchSide string

const (
	SideJobs    MatchSide = "jobs"
	SideWorkers MatchSide = "workers"
)

// MatchCandidate is one scored stored profile. It is never persisted.
type MatchCandidate struct {
	Side      MatchSide `json:"side"`
	ProfileID uint      `json:"profile_id"`

	// Name is the worker's name; empty for jobs.
	Name         string `json:"name,omitempty"`
	Skill        string `json:"skill"`
	Location     string `json:"location"`
	Wage         *int   `json:"wage,omitempty"`
	Experience   *int   `json:"experience,omitempty"`
	Organisation string `json:"organisation,omitempty"`
	PhoneNo      string `json:"phone_no"`

	RelevanceTier int     `json:"relevance_tier"`
	LocationTier  int     `json:"location_tier"`
	Score         float64 `json:"score"`
}
