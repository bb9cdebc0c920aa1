package bot

import (
	"strings"
)

// Identity is a bot persona surfaced to the opposing player.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Difficulty  string `json:"difficulty"`
}

// idPrefix marks user ids that belong to bots throughout the module.
const idPrefix = "bot_"

var identities = []Identity{
	{UserID: "bot_ada", DisplayName: "Ada", Difficulty: "greedy"},
	{UserID: "bot_felix", DisplayName: "Felix", Difficulty: "greedy"},
	{UserID: "bot_mona", DisplayName: "Mona", Difficulty: "easy"},
}

// IsBotID reports whether the user id belongs to a bot persona.
func IsBotID(userID string) bool {
	return strings.HasPrefix(userID, idPrefix)
}

// PickIdentity selects a persona deterministically from a seed string so the
// same match always fields the same opponent.
func PickIdentity(seed string) Identity {
	if len(identities) == 0 {
		return Identity{UserID: "bot_default", DisplayName: "Bot", Difficulty: "greedy"}
	}
	sum := 0
	for _, r := range seed {
		sum += int(r)
	}
	return identities[sum%len(identities)]
}
