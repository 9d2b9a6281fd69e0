// Package projects implements the business operations the bot layer
// asks for: owner resolution and shape-tolerant paginated fetches over
// the Zoho Projects resources.
package projects

import (
	"context"
	"errors"

	"github.com/botworks/zohobridge/internal/gateway"
)

// ErrOwnerNotFound distinguishes a resolution miss from a transport
// failure, so the rendering layer can answer "not found" instead of
// "try again".
var ErrOwnerNotFound = errors.New("owner not found")

// Caller is the gateway call primitive the fetchers are built on.
type Caller interface {
	Call(ctx context.Context, p gateway.CallParams) (*gateway.Response, error)
}

// Owner is a resolved portal user.
type Owner struct {
	ID    string
	Name  string
	Email string
}

// Kind names a paginated Zoho Projects resource.
type Kind string

const (
	KindTasks    Kind = "tasks"
	KindProjects Kind = "projects"
	KindIssues   Kind = "issues"
	KindTimeLogs Kind = "timelogs"
)

// resourceShape is the ranked list of endpoint path and response-field
// probes for one resource. The upstream schema is inconsistent across
// portals and API revisions; probes are tried in order and the first
// that yields a non-empty collection wins.
type resourceShape struct {
	path   string   // printf template, portal id substituted
	fields []string // ranked dot-paths into the response body
}

var resourceShapes = map[Kind]resourceShape{
	KindTasks:    {path: "portal/%s/tasks/", fields: []string{"tasks", "data.tasks", "data.list"}},
	KindProjects: {path: "portal/%s/projects/", fields: []string{"projects", "data.projects", "data.list"}},
	KindIssues:   {path: "portal/%s/bugs/", fields: []string{"bugs", "issues", "data.bugs"}},
	KindTimeLogs: {path: "portal/%s/logs/", fields: []string{"timelogs.date", "logs", "data.logs"}},
}

// userFieldProbes are the ranked shapes for the portal user list.
var userFieldProbes = []string{"users", "data.users", "data.list"}
