package projects

import (
	"context"
	"net/url"
	"strings"
)

// Answers are capped so a chat card stays readable.
const maxPendingTasks = 15

// PendingTasksFor returns open tasks assigned to anyone whose name
// matches the query, capped at maxPendingTasks, in upstream order.
// The query is matched against each assigned owner's full, first, last
// and display names, and against the resolved canonical owner name when
// resolution succeeds.
func (s *Service) PendingTasksFor(ctx context.Context, conversationID, portalID, nameQuery string) ([]map[string]interface{}, error) {
	query := strings.ToLower(strings.TrimSpace(nameQuery))
	if query == "" {
		return nil, nil
	}

	canonical := ""
	if owner, err := s.ResolveOwner(ctx, conversationID, portalID, nameQuery); err == nil && owner != nil {
		canonical = strings.ToLower(owner.Name)
	}

	tasks, err := s.FetchAll(ctx, KindTasks, conversationID, portalID, nil)
	if err != nil {
		return nil, err
	}

	var pending []map[string]interface{}
	for _, task := range tasks {
		if taskCompleted(task) {
			continue
		}
		if !taskOwnerMatches(task, query, canonical) {
			continue
		}
		pending = append(pending, task)
		if len(pending) >= maxPendingTasks {
			break
		}
	}
	return pending, nil
}

// TimeLogsFor fetches all time logs recorded by the resolved owner.
// Extra query parameters (date ranges, view types) pass through to the
// upstream call. Fails with ErrOwnerNotFound on a resolution miss.
func (s *Service) TimeLogsFor(ctx context.Context, conversationID, portalID, nameQuery string, extra url.Values) ([]map[string]interface{}, error) {
	owner, err := s.ResolveOwner(ctx, conversationID, portalID, nameQuery)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, ErrOwnerNotFound
	}

	params := url.Values{}
	for k, vs := range extra {
		params[k] = vs
	}
	params.Set("users_list", owner.ID)
	return s.FetchAll(ctx, KindTimeLogs, conversationID, portalID, params)
}

func taskCompleted(task map[string]interface{}) bool {
	if b, ok := task["completed"].(bool); ok && b {
		return true
	}
	status, ok := task["status"].(map[string]interface{})
	if !ok {
		return false
	}
	if t, ok := status["type"].(string); ok && strings.EqualFold(t, "closed") {
		return true
	}
	if name, ok := status["name"].(string); ok && strings.EqualFold(name, "closed") {
		return true
	}
	return false
}

// taskOwnerMatches checks every assigned owner's name fields against the
// trimmed query and the canonical resolved name.
func taskOwnerMatches(task map[string]interface{}, query, canonical string) bool {
	owners := taskOwners(task)
	for _, owner := range owners {
		for _, candidate := range nameCandidates(owner) {
			if strings.Contains(candidate, query) {
				return true
			}
			if canonical != "" && strings.Contains(candidate, canonical) {
				return true
			}
		}
	}
	return false
}

// taskOwners digs the assignee list out of the task, tolerating both
// the nested details shape and the flat one.
func taskOwners(task map[string]interface{}) []map[string]interface{} {
	if details, ok := task["details"].(map[string]interface{}); ok {
		if owners := toMaps(listField(details, "owners")); len(owners) > 0 {
			return owners
		}
	}
	if owners := toMaps(listField(task, "owners")); len(owners) > 0 {
		return owners
	}
	// Single flat owner name, oldest schema.
	if name := stringField(task, "owner"); name != "" {
		return []map[string]interface{}{{"name": name}}
	}
	return nil
}

func listField(m map[string]interface{}, key string) []interface{} {
	list, _ := m[key].([]interface{})
	return list
}
