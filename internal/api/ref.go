package api

import (
	"encoding/json"
	"net/http"

	"gitstore/internal/apperr"
	"gitstore/internal/httpx"
	"gitstore/internal/identity"
	"gitstore/internal/refs"
)

// RefMux exposes the reference service: the main pointer and the tag
// lifecycle. Every route except the health check requires a bearer
// identity resolved through the external provider.
func RefMux(coord *refs.Coordinator, verifier identity.Verifier) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	authed := func(h func(w http.ResponseWriter, r *http.Request, p identity.Principal)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, err := identity.BearerToken(r)
			if err != nil {
				httpx.Fail(w, err)
				return
			}
			p, err := verifier.Verify(r.Context(), token)
			if err != nil {
				httpx.Fail(w, err)
				return
			}
			h(w, r.WithContext(identity.WithPrincipal(r.Context(), p)), p)
		}
	}

	mux.HandleFunc("PUT /main/{repositoryId}", authed(func(w http.ResponseWriter, r *http.Request, p identity.Principal) {
		var req struct {
			CommitHash string `json:"commitHash"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.Fail(w, apperr.BadRequest("request body is not valid JSON"))
			return
		}
		ref, err := coord.UpdateMain(r.Context(), r.PathValue("repositoryId"), p.UserID, req.CommitHash)
		if err != nil {
			httpx.Fail(w, err)
			return
		}
		httpx.OK(w, "main pointer updated", ref)
	}))

	mux.HandleFunc("GET /main/{repositoryId}", authed(func(w http.ResponseWriter, r *http.Request, p identity.Principal) {
		ref, err := coord.GetMain(r.Context(), r.PathValue("repositoryId"), p.UserID)
		if err != nil {
			httpx.Fail(w, err)
			return
		}
		httpx.OK(w, "main pointer", ref)
	}))

	mux.HandleFunc("POST /tags/{repositoryId}", authed(func(w http.ResponseWriter, r *http.Request, p identity.Principal) {
		var req struct {
			TagName    string `json:"tagName"`
			CommitHash string `json:"commitHash"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.Fail(w, apperr.BadRequest("request body is not valid JSON"))
			return
		}
		ref, err := coord.CreateTag(r.Context(), r.PathValue("repositoryId"), p.UserID, req.TagName, req.CommitHash)
		if err != nil {
			httpx.Fail(w, err)
			return
		}
		httpx.Created(w, "tag created", ref)
	}))

	mux.HandleFunc("GET /tags/{repositoryId}/{tagName}", authed(func(w http.ResponseWriter, r *http.Request, p identity.Principal) {
		ref, err := coord.GetTag(r.Context(), r.PathValue("repositoryId"), p.UserID, r.PathValue("tagName"))
		if err != nil {
			httpx.Fail(w, err)
			return
		}
		httpx.OK(w, "tag", ref)
	}))

	mux.HandleFunc("GET /tags/{repositoryId}", authed(func(w http.ResponseWriter, r *http.Request, p identity.Principal) {
		tags, err := coord.ListTags(r.Context(), r.PathValue("repositoryId"), p.UserID)
		if err != nil {
			httpx.Fail(w, err)
			return
		}
		httpx.OK(w, "tags listed", map[string]any{"tags": tags, "count": len(tags)})
	}))

	mux.HandleFunc("DELETE /tags/{repositoryId}/{tagName}", authed(func(w http.ResponseWriter, r *http.Request, p identity.Principal) {
		deleted, err := coord.DeleteTag(r.Context(), r.PathValue("repositoryId"), p.UserID, r.PathValue("tagName"))
		if err != nil {
			httpx.Fail(w, err)
			return
		}
		httpx.OK(w, "tag deleted", map[string]any{"deleted": deleted})
	}))

	return mux
}
