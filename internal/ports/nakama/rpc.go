package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"

	"duelsol/internal/app"
	"duelsol/internal/config"
)

// FindDuelResponse is the payload returned to clients requesting a duel.
type FindDuelResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// JoinTokenRequest asks for an invitation token for a match the caller hosts.
type JoinTokenRequest struct {
	MatchID string `json:"match_id"`
	Role    string `json:"role"`
}

// JoinTokenResponse carries the signed invitation token.
type JoinTokenResponse struct {
	Token string `json:"token"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	if err := initializer.RegisterRpc(RpcFindDuel, rpcFindDuel); err != nil {
		return err
	}
	return initializer.RegisterRpc(RpcJoinToken, rpcJoinToken)
}

// rpcFindDuel searches for a duel with an open seat and joins the caller to
// it, creating a fresh match when none exists.
func rpcFindDuel(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	query := fmt.Sprintf("+label.%s:>=1 +label.game:duelsol", MatchLabelKey_OpenSeats)
	limit := 1
	authoritative := true
	minSize := 0
	maxSize := 1

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("rpcFindDuel [User:%s]: Failed to list matches: %v", userID, err)
		return "", err
	}

	if len(matches) > 0 {
		resp := FindDuelResponse{MatchID: matches[0].MatchId, IsNew: false}
		b, _ := json.Marshal(resp)
		logger.Info("rpcFindDuel [User:%s]: Found existing match %s", userID, resp.MatchID)
		return string(b), nil
	}

	params := map[string]interface{}{}
	var req struct {
		Seed string `json:"seed"`
	}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err == nil && req.Seed != "" {
			params["seed"] = req.Seed
		}
	}

	matchID, err := nk.MatchCreate(ctx, MatchNameDuel, params)
	if err != nil {
		logger.Error("rpcFindDuel [User:%s]: Failed to create match: %v", userID, err)
		return "", err
	}

	resp := FindDuelResponse{MatchID: matchID, IsNew: true}
	b, _ := json.Marshal(resp)
	logger.Info("rpcFindDuel [User:%s]: Created new match %s", userID, matchID)
	return string(b), nil
}

// rpcJoinToken mints an invitation token the host can share out of band.
func rpcJoinToken(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	userID, _ := ctx.Value(runtime.RUNTIME_CTX_USER_ID).(string)

	secret := config.JoinTokenSecret()
	if secret == "" {
		return "", fmt.Errorf("join tokens are not configured")
	}

	var req JoinTokenRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", fmt.Errorf("malformed request: %w", err)
	}
	if req.Role == "" {
		req.Role = app.TokenRoleGuest
	}

	ts := app.NewTokenService(secret, config.JoinTokenIssuer(), config.JoinTokenTTL())
	token, err := ts.GenerateJoinToken(userID, req.MatchID, req.Role)
	if err != nil {
		logger.Error("rpcJoinToken [User:%s]: %v", userID, err)
		return "", err
	}

	b, _ := json.Marshal(JoinTokenResponse{Token: token})
	return string(b), nil
}
