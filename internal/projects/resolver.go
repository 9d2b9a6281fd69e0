package projects

import (
	"context"
	"fmt"
	"strings"

	"github.com/botworks/zohobridge/internal/gateway"
	"github.com/botworks/zohobridge/internal/observe"
)

// Service exposes the bot-facing operations on top of the gateway.
type Service struct {
	caller   Caller
	obs      observe.Observer
	pageSize int
}

// NewService creates the resolver/fetcher service.
func NewService(caller Caller, obs observe.Observer) *Service {
	if obs == nil {
		obs = observe.Nop
	}
	return &Service{
		caller:   caller,
		obs:      obs,
		pageSize: 100,
	}
}

// ResolveOwner finds the portal user matching a name query. Matching is
// ranked: exact full-name equality, then prefix, then substring, all
// case-insensitive on the trimmed query; within one rank the first user
// in upstream order wins. Returns nil when nobody matches.
func (s *Service) ResolveOwner(ctx context.Context, conversationID, portalID, nameQuery string) (*Owner, error) {
	query := strings.ToLower(strings.TrimSpace(nameQuery))
	if query == "" {
		return nil, nil
	}

	resp, err := s.caller.Call(ctx, gateway.CallParams{
		Endpoint:       fmt.Sprintf("portal/%s/users/", portalID),
		ConversationID: conversationID,
		PortalID:       portalID,
	})
	if err != nil {
		return nil, err
	}

	users := extractItems(resp.Body, userFieldProbes)
	if len(users) == 0 {
		return nil, nil
	}

	type rankedMatch struct {
		user map[string]interface{}
		rank int
	}
	const (
		rankExact = iota
		rankPrefix
		rankSubstring
	)

	best := rankedMatch{rank: rankSubstring + 1}
	for _, user := range users {
		rank := rankSubstring + 1
		for _, candidate := range nameCandidates(user) {
			switch {
			case candidate == query:
				rank = rankExact
			case strings.HasPrefix(candidate, query):
				rank = min(rank, rankPrefix)
			case strings.Contains(candidate, query):
				rank = min(rank, rankSubstring)
			}
		}
		if rank < best.rank {
			best = rankedMatch{user: user, rank: rank}
			if rank == rankExact {
				break
			}
		}
	}

	if best.user == nil {
		return nil, nil
	}
	return &Owner{
		ID:    stringField(best.user, "id"),
		Name:  fullName(best.user),
		Email: stringField(best.user, "email"),
	}, nil
}

// nameCandidates returns the lowercased name fields a query is matched
// against.
func nameCandidates(user map[string]interface{}) []string {
	var candidates []string
	for _, key := range []string{"name", "full_name", "display_name", "first_name", "last_name"} {
		if v := stringField(user, key); v != "" {
			candidates = append(candidates, strings.ToLower(v))
		}
	}
	if first, last := stringField(user, "first_name"), stringField(user, "last_name"); first != "" && last != "" {
		candidates = append(candidates, strings.ToLower(first+" "+last))
	}
	return candidates
}

func fullName(user map[string]interface{}) string {
	for _, key := range []string{"name", "full_name", "display_name"} {
		if v := stringField(user, key); v != "" {
			return v
		}
	}
	if first, last := stringField(user, "first_name"), stringField(user, "last_name"); first != "" || last != "" {
		return strings.TrimSpace(first + " " + last)
	}
	return ""
}
