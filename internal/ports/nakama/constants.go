package nakama

const (
	// RpcFindDuel is the Nakama RPC id clients call to find or create a duel
	// with an open seat.
	RpcFindDuel = "find_duel"

	// RpcJoinToken is the Nakama RPC id the host calls to mint an invitation
	// token for a specific match.
	RpcJoinToken = "duel_join_token"

	// MatchNameDuel is the authoritative match handler name registered with
	// Nakama.
	MatchNameDuel = "duelsol_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpMove            int64 = 1
	OpRequestSnapshot int64 = 2
	OpRequestNewGame  int64 = 3
	OpCheckInvariant  int64 = 4

	// Server -> Client events
	OpPlayerJoined    int64 = 101
	OpPlayerLeft      int64 = 102
	OpSnapshot        int64 = 103 // sent privately, perspective-projected
	OpMoveApplied     int64 = 104
	OpMoveRejected    int64 = 105 // sent privately with the airbag snapshot
	OpMatchReset      int64 = 106
	OpInvariantReport int64 = 107
	OpError           int64 = 108
)
