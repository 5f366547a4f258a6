package progression

const (
	xpPerSession = 50
	xpPerLevel   = 1000
)

var levelTitles = []string{
	"Novice",
	"Apprenti",
	"Pratiquant",
	"Régulier",
	"Dévoué",
	"Expert",
	"Vétéran",
	"Maître",
	"Champion",
	"Légende",
}

// Level is a user's experience standing, earned by completing sessions.
type Level struct {
	CurrentLevel   int     `json:"current_level"`
	CurrentXP      int     `json:"current_xp"`
	XPForNextLevel int     `json:"xp_for_next_level"`
	XPProgress     float64 `json:"xp_progress"`
	TotalXP        int     `json:"total_xp"`
	Title          string  `json:"level_title"`
}

// ComputeLevel derives the level from a completed-session count. Level 1
// is Novice; titles stop at Légende.
func ComputeLevel(completedSessions int) Level {
	total := max(completedSessions, 0) * xpPerSession
	level := total/xpPerLevel + 1
	current := total % xpPerLevel
	next := level * xpPerLevel

	return Level{
		CurrentLevel:   level,
		CurrentXP:      current,
		XPForNextLevel: next,
		XPProgress:     float64(current) / float64(next) * 100,
		TotalXP:        total,
		Title:          levelTitles[min(level-1, len(levelTitles)-1)],
	}
}
