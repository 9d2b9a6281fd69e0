package projects

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/botworks/zohobridge/internal/auth/token"
	"github.com/botworks/zohobridge/internal/gateway"
)

// Pagination stops unconditionally after this many pages.
const maxPages = 100

// FetchAll walks a resource page by page until a page comes back empty,
// concatenating the results. A failed page ends the walk and returns
// what was gathered, except that an authentication failure before
// anything was fetched propagates so the bot can prompt for re-auth.
func (s *Service) FetchAll(ctx context.Context, kind Kind, conversationID, portalID string, extra url.Values) ([]map[string]interface{}, error) {
	shape, ok := resourceShapes[kind]
	if !ok {
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}
	endpoint := fmt.Sprintf(shape.path, portalID)

	var all []map[string]interface{}
	for page := 1; page <= maxPages; page++ {
		query := url.Values{}
		for k, vs := range extra {
			query[k] = vs
		}
		query.Set("page", strconv.Itoa(page))
		query.Set("per_page", strconv.Itoa(s.pageSize))

		resp, err := s.caller.Call(ctx, gateway.CallParams{
			Endpoint:       endpoint,
			ConversationID: conversationID,
			PortalID:       portalID,
			Query:          query,
		})
		if err != nil {
			if len(all) == 0 && isAuthError(err) {
				return nil, err
			}
			break
		}

		items := extractItems(resp.Body, shape.fields)
		if len(items) == 0 {
			break
		}
		all = append(all, items...)
		s.obs.PageFetched(string(kind), page, len(items))
	}
	return all, nil
}

// Projects lists all projects in the portal.
func (s *Service) Projects(ctx context.Context, conversationID, portalID string) ([]map[string]interface{}, error) {
	return s.FetchAll(ctx, KindProjects, conversationID, portalID, nil)
}

// Issues lists all issues in the portal.
func (s *Service) Issues(ctx context.Context, conversationID, portalID string) ([]map[string]interface{}, error) {
	return s.FetchAll(ctx, KindIssues, conversationID, portalID, nil)
}

func isAuthError(err error) bool {
	if errors.Is(err, token.ErrNotAuthenticated) || errors.Is(err, token.ErrNoRefreshToken) {
		return true
	}
	var rerr *token.RefreshError
	return errors.As(err, &rerr)
}
