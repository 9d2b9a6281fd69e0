package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/botworks/zohobridge/internal/auth/token"
	"github.com/botworks/zohobridge/internal/db/models"
	"github.com/botworks/zohobridge/internal/gateway"
	"github.com/botworks/zohobridge/internal/projects"
	"github.com/botworks/zohobridge/internal/store"
)

type credentialRequest struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	AccessToken    string `json:"access_token"`
	RefreshToken   string `json:"refresh_token"`
	ExpiresIn      int64  `json:"expires_in"`
}

type credentialResponse struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	AccessToken    string `json:"access_token"` // masked
	ExpiresAt      int64  `json:"expires_at"`
	UpdatedAt      string `json:"updated_at"`
}

// UpsertCredentialHandler stores tokens after an OAuth handshake.
func UpsertCredentialHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
			return
		}
		if req.ConversationID == "" || req.AccessToken == "" {
			writeJSONError(w, http.StatusBadRequest, "missing_fields", "conversation_id and access_token are required")
			return
		}

		cred, err := st.Upsert(r.Context(), req.ConversationID, req.UserID, req.AccessToken, req.RefreshToken, req.ExpiresIn)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toCredentialResponse(cred))
	}
}

// GetCredentialHandler returns the stored credential with the access
// token masked.
func GetCredentialHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID := chi.URLParam(r, "conversationID")
		cred, err := st.Get(r.Context(), conversationID)
		if err != nil {
			writeError(w, err)
			return
		}
		if cred == nil {
			writeJSONError(w, http.StatusNotFound, "not_found", "no credential for conversation")
			return
		}
		writeJSON(w, http.StatusOK, toCredentialResponse(cred))
	}
}

// DeleteCredentialHandler revokes the stored credential.
func DeleteCredentialHandler(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID := chi.URLParam(r, "conversationID")
		removed, err := st.Delete(r.Context(), conversationID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"removed": removed})
	}
}

// ResolveOwnerHandler resolves a name query to a portal user.
func ResolveOwnerHandler(svc *projects.Service, defaultPortal string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID, portalID, ok := queryScope(w, r, defaultPortal)
		if !ok {
			return
		}
		owner, err := svc.ResolveOwner(r.Context(), conversationID, portalID, r.URL.Query().Get("q"))
		if err != nil {
			writeError(w, err)
			return
		}
		if owner == nil {
			writeJSONError(w, http.StatusNotFound, "owner_not_found", "no portal user matches the query")
			return
		}
		writeJSON(w, http.StatusOK, owner)
	}
}

// PendingTasksHandler answers "pending tasks for <owner>" queries.
func PendingTasksHandler(svc *projects.Service, defaultPortal string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID, portalID, ok := queryScope(w, r, defaultPortal)
		if !ok {
			return
		}
		tasks, err := svc.PendingTasksFor(r.Context(), conversationID, portalID, r.URL.Query().Get("owner"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": emptyIfNil(tasks)})
	}
}

// TimeLogsHandler answers "time logs for <owner>" queries; date filters
// pass through to the upstream call.
func TimeLogsHandler(svc *projects.Service, defaultPortal string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID, portalID, ok := queryScope(w, r, defaultPortal)
		if !ok {
			return
		}

		extra := url.Values{}
		for _, key := range []string{"from", "to", "view_type"} {
			if v := r.URL.Query().Get(key); v != "" {
				extra.Set(key, v)
			}
		}

		logs, err := svc.TimeLogsFor(r.Context(), conversationID, portalID, r.URL.Query().Get("owner"), extra)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"timelogs": emptyIfNil(logs)})
	}
}

// ProjectsHandler lists portal projects.
func ProjectsHandler(svc *projects.Service, defaultPortal string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conversationID, portalID, ok := queryScope(w, r, defaultPortal)
		if !ok {
			return
		}
		list, err := svc.Projects(r.Context(), conversationID, portalID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"projects": emptyIfNil(list)})
	}
}

// queryScope extracts the conversation identity and portal scope from
// the request; the conversation id is always explicit, the portal falls
// back to the configured default for single-tenant deployments.
func queryScope(w http.ResponseWriter, r *http.Request, defaultPortal string) (conversationID, portalID string, ok bool) {
	conversationID = r.URL.Query().Get("conversation_id")
	if conversationID == "" {
		writeJSONError(w, http.StatusBadRequest, "missing_conversation", "conversation_id is required")
		return "", "", false
	}
	portalID = r.URL.Query().Get("portal_id")
	if portalID == "" {
		portalID = defaultPortal
	}
	if portalID == "" {
		writeJSONError(w, http.StatusBadRequest, "missing_portal", "portal_id is required")
		return "", "", false
	}
	return conversationID, portalID, true
}

// writeError maps the error taxonomy onto HTTP statuses so the bot
// layer can choose between "please authenticate", "not found" and "try
// again" renderings.
func writeError(w http.ResponseWriter, err error) {
	var rerr *token.RefreshError
	var uerr *gateway.UpstreamError
	switch {
	case errors.Is(err, token.ErrNotAuthenticated), errors.Is(err, token.ErrNoRefreshToken):
		writeJSONError(w, http.StatusUnauthorized, "not_authenticated", "please authenticate with Zoho Projects")
	case errors.As(err, &rerr):
		writeJSONError(w, http.StatusUnauthorized, "refresh_failed", "please re-authenticate with Zoho Projects")
	case errors.Is(err, projects.ErrOwnerNotFound):
		writeJSONError(w, http.StatusNotFound, "owner_not_found", "no portal user matches the query")
	case errors.As(err, &uerr):
		writeJSONError(w, http.StatusBadGateway, "upstream_error", uerr.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func toCredentialResponse(cred *models.Credential) credentialResponse {
	return credentialResponse{
		ConversationID: cred.ConversationID,
		UserID:         cred.ExternalUserID,
		AccessToken:    maskToken(cred.AccessToken),
		ExpiresAt:      cred.ExpiresAt,
		UpdatedAt:      cred.UpdatedAt.Format(time.RFC3339),
	}
}

func emptyIfNil(items []map[string]interface{}) []map[string]interface{} {
	if items == nil {
		return []map[string]interface{}{}
	}
	return items
}

func maskToken(t string) string {
	if len(t) < 20 {
		return t
	}
	return "..." + t[len(t)-12:]
}
