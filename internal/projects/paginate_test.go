package projects

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/botworks/zohobridge/internal/auth/token"
	"github.com/botworks/zohobridge/internal/gateway"
	"github.com/botworks/zohobridge/internal/observe"
)

// pagedCaller serves scripted pages keyed by the page query parameter.
func pagedCaller(pages map[string]string, failOn string, failErr error) *fakeCaller {
	return &fakeCaller{fn: func(p gateway.CallParams) (*gateway.Response, error) {
		page := p.Query.Get("page")
		if page == failOn {
			return nil, failErr
		}
		body, ok := pages[page]
		if !ok {
			body = `{"tasks":[]}`
		}
		return jsonResponse(body)
	}}
}

func TestFetchAll_StopsOnEmptyPage(t *testing.T) {
	caller := pagedCaller(map[string]string{
		"1": `{"tasks":[{"id":"t1"},{"id":"t2"}]}`,
		"2": `{"tasks":[{"id":"t3"}]}`,
		"3": `{"tasks":[]}`,
	}, "", nil)
	svc := NewService(caller, observe.Nop)

	items, err := svc.FetchAll(context.Background(), KindTasks, "conv-1", "p1", nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items across pages, got %d", len(items))
	}
	if len(caller.calls) != 3 {
		t.Fatalf("expected 3 page calls, got %d", len(caller.calls))
	}
	if got := caller.calls[0].Query.Get("per_page"); got != "100" {
		t.Fatalf("per_page = %q, want 100", got)
	}
	if got := caller.calls[2].Query.Get("page"); got != "3" {
		t.Fatalf("third call page = %q, want 3", got)
	}
}

func TestFetchAll_FailedPageEndsPagination(t *testing.T) {
	caller := pagedCaller(map[string]string{
		"1": `{"tasks":[{"id":"t1"}]}`,
	}, "2", &gateway.UpstreamError{Endpoint: "portal/p1/tasks/", Status: 500})
	svc := NewService(caller, observe.Nop)

	items, err := svc.FetchAll(context.Background(), KindTasks, "conv-1", "p1", nil)
	if err != nil {
		t.Fatalf("mid-walk failure should degrade, got error: %v", err)
	}
	if len(items) != 1 || stringField(items[0], "id") != "t1" {
		t.Fatalf("expected the gathered first page, got %+v", items)
	}
}

func TestFetchAll_AuthErrorBeforeAnyDataPropagates(t *testing.T) {
	authErr := fmt.Errorf("%w: conv-1", token.ErrNotAuthenticated)
	caller := pagedCaller(nil, "1", authErr)
	svc := NewService(caller, observe.Nop)

	_, err := svc.FetchAll(context.Background(), KindTasks, "conv-1", "p1", nil)
	if !errors.Is(err, token.ErrNotAuthenticated) {
		t.Fatalf("expected auth error to propagate, got %v", err)
	}
}

func TestFetchAll_UpstreamErrorBeforeAnyDataDegrades(t *testing.T) {
	caller := pagedCaller(nil, "1", &gateway.UpstreamError{Endpoint: "portal/p1/tasks/", Status: 500})
	svc := NewService(caller, observe.Nop)

	items, err := svc.FetchAll(context.Background(), KindTasks, "conv-1", "p1", nil)
	if err != nil {
		t.Fatalf("non-auth failure should degrade to empty, got %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestFetchAll_UnknownKind(t *testing.T) {
	svc := NewService(&fakeCaller{}, observe.Nop)
	if _, err := svc.FetchAll(context.Background(), Kind("sprints"), "conv-1", "p1", nil); err == nil {
		t.Fatal("expected error for unknown resource kind")
	}
}

func TestFetchAll_ProbesFallThroughShapes(t *testing.T) {
	caller := pagedCaller(map[string]string{
		"1": `{"data":{"list":[{"id":"t1"}]}}`,
		"2": `{}`,
	}, "", nil)
	svc := NewService(caller, observe.Nop)

	items, err := svc.FetchAll(context.Background(), KindTasks, "conv-1", "p1", nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 || stringField(items[0], "id") != "t1" {
		t.Fatalf("expected item via data.list probe, got %+v", items)
	}
}

func TestExtractItems_TopLevelArray(t *testing.T) {
	items := extractItems([]byte(`[{"id":"a"},{"id":"b"}]`), []string{"tasks"})
	if len(items) != 2 {
		t.Fatalf("expected 2 items from top-level array, got %d", len(items))
	}
}

func TestExtractItems_NoShapeMatches(t *testing.T) {
	items := extractItems([]byte(`{"unrelated":true}`), []string{"tasks", "data.tasks"})
	if items != nil {
		t.Fatalf("expected nil for unmatched shapes, got %+v", items)
	}
}
