package domain

import "time"

// Continent groups countries on the map and in result breakdowns.
type Continent string

const (
	Africa       Continent = "africa"
	Asia         Continent = "asia"
	Europe       Continent = "europe"
	NorthAmerica Continent = "north-america"
	SouthAmerica Continent = "south-america"
	Oceania      Continent = "oceania"
)

// Continents lists every continent in display order.
var Continents = []Continent{Africa, Asia, Europe, NorthAmerica, SouthAmerica, Oceania}

// Valid reports whether c is a known continent.
func (c Continent) Valid() bool {
	for _, known := range Continents {
		if c == known {
			return true
		}
	}
	return false
}

// Country is one catalog record. IDs match the path ids of the world map asset.
type Country struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Continent Continent `json:"continent" yaml:"continent"`
	Aliases   []string  `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// Identity is the optional authenticated user attached to a session.
type Identity struct {
	UserID      string `json:"userId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// Anonymous reports whether no user is attached; anonymous scores are not persisted.
func (i Identity) Anonymous() bool {
	return i.UserID == ""
}

// SessionStatus is the lifecycle state of a quiz session.
type SessionStatus string

const (
	StatusNotStarted SessionStatus = "not_started"
	StatusRunning    SessionStatus = "running"
	StatusFinished   SessionStatus = "finished"
)

// FinishReason records which path moved a session to finished.
type FinishReason string

const (
	FinishCompleted FinishReason = "completed"
	FinishExplicit  FinishReason = "finished"
	FinishTimeUp    FinishReason = "time_up"
)

// SubmitOutcome is the recoverable feedback for a typed answer.
type SubmitOutcome string

const (
	OutcomeAccepted  SubmitOutcome = "accepted"
	OutcomeDuplicate SubmitOutcome = "duplicate"
	OutcomeNotFound  SubmitOutcome = "not_found"
)

// SubmitResult summarizes the outcome of one answer.
type SubmitResult struct {
	Input    string        `json:"input"`
	Outcome  SubmitOutcome `json:"outcome"`
	Country  *Country      `json:"country,omitempty"`
	Found    int           `json:"found"`
	Total    int           `json:"total"`
	Finished bool          `json:"finished"`
}

// Paint is the three-way map coloring of a catalog id.
type Paint string

const (
	PaintFound   Paint = "found"
	PaintMissed  Paint = "missed"
	PaintNeutral Paint = "neutral"
)

// ContinentProgress counts found countries within one continent.
type ContinentProgress struct {
	Continent Continent `json:"continent"`
	Found     int       `json:"found"`
	Total     int       `json:"total"`
}

// ContinentGroup lists countries of one continent.
type ContinentGroup struct {
	Continent Continent `json:"continent"`
	Countries []Country `json:"countries"`
}

// SessionSnapshot is a point-in-time view of a session pushed to clients.
type SessionSnapshot struct {
	SessionID   string              `json:"sessionId"`
	Status      SessionStatus       `json:"status"`
	Duration    int                 `json:"duration"`
	Remaining   int                 `json:"remaining"`
	Discovered  []string            `json:"discovered"`
	Found       int                 `json:"found"`
	Total       int                 `json:"total"`
	Percentage  int                 `json:"percentage"`
	Continents  []ContinentProgress `json:"continents"`
	// DiscoveredByContinent lists found countries grouped by continent, by name.
	DiscoveredByContinent []ContinentGroup `json:"discoveredByContinent"`
	QuitPending           bool             `json:"quitPending"`
	Result                *SessionResult   `json:"result,omitempty"`
}

// SessionResult is produced once when a session finishes.
type SessionResult struct {
	SessionID      string           `json:"sessionId"`
	Reason         FinishReason     `json:"reason"`
	CorrectAnswers int              `json:"correctAnswers"`
	Total          int              `json:"total"`
	Percentage     int              `json:"percentage"`
	ElapsedSeconds int              `json:"elapsedSeconds"`
	Rating         string           `json:"rating"`
	Missed         []ContinentGroup `json:"missed"`
	Coloring       map[string]Paint `json:"coloring"`
}

// Score is a persisted session outcome.
type Score struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	DisplayName    string    `json:"displayName"`
	CorrectAnswers int       `json:"correctAnswers"`
	Total          int       `json:"total"`
	TimeSeconds    int       `json:"time"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Better reports whether s ranks above other: more correct answers, then less time.
func (s Score) Better(other Score) bool {
	if s.CorrectAnswers != other.CorrectAnswers {
		return s.CorrectAnswers > other.CorrectAnswers
	}
	if s.TimeSeconds != other.TimeSeconds {
		return s.TimeSeconds < other.TimeSeconds
	}
	return s.CreatedAt.Before(other.CreatedAt)
}

// LeaderboardEntry is a ranked score.
type LeaderboardEntry struct {
	Rank int `json:"rank"`
	Score
}
