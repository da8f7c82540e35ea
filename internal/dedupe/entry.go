package dedupe

import "time"

// Game status values ordered from least to most progressed. The ordering
// drives merge aggregation: the highest-ranked status survives.
const (
	StatusUnplayed      = "unplayed"
	StatusOnHold        = "on_hold"
	StatusPlaying       = "playing"
	StatusPlayed        = "played"
	StatusCompleted     = "completed"
	StatusFullCompleted = "100_completed"
)

// Priority values ordered from least to most urgent.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

var statusRank = map[string]int{
	StatusUnplayed:      0,
	StatusOnHold:        1,
	StatusPlaying:       2,
	StatusPlayed:        3,
	StatusCompleted:     4,
	StatusFullCompleted: 5,
}

var priorityRank = map[string]int{
	PriorityLow:    0,
	PriorityMedium: 1,
	PriorityHigh:   2,
}

// LibraryEntry is one platform-specific ownership record as the engine sees
// it. The persistence layer owns the row; the engine only reads these fields
// and, on merge, proposes updates through EntryUpdate.
type LibraryEntry struct {
	ID                   int64      `json:"entry_id"`
	CanonicalGameID      string     `json:"canonical_game_id,omitempty"`
	Title                string     `json:"title"`
	Platform             string     `json:"platform"`
	PlaytimeHours        float64    `json:"playtime_hours"`
	AchievementsEarned   int        `json:"achievements_earned"`
	AchievementsTotal    int        `json:"achievements_total"`
	CompletionPercentage float64    `json:"completion_percentage"`
	LastPlayedAt         *time.Time `json:"last_played_at,omitempty"`
	Status               string     `json:"status"`
	Priority             string     `json:"priority"`
	Notes                string     `json:"notes,omitempty"`
	Tags                 []string   `json:"tags,omitempty"`
}

// EntryUpdate is the set of fields a merge writes back to the primary record.
type EntryUpdate struct {
	PlaytimeHours        float64
	AchievementsEarned   int
	AchievementsTotal    int
	CompletionPercentage float64
	LastPlayedAt         *time.Time
	Status               string
	Priority             string
	Notes                string
	Tags                 []string
}
