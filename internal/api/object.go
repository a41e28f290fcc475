// Package api builds the HTTP surfaces of the two services. Handlers
// decode and delegate; all policy lives in the layers below.
package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"gitstore/internal/apperr"
	"gitstore/internal/httpx"
	"gitstore/internal/object"
	"gitstore/internal/objectstore"
)

const maxUploadMemory = 32 << 20

// ObjectMux exposes the object-store service: blobs, trees, commits, the
// existence probe and per-repository listing.
func ObjectMux(store *objectstore.Store) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /blobs", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			httpx.Fail(w, apperr.BadRequest("multipart form is malformed"))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			httpx.Fail(w, apperr.BadRequest("file part is required"))
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			httpx.Fail(w, apperr.Internal(err, "upload read failed"))
			return
		}
		rec, err := store.PutBlob(r.Context(), data, header.Filename, header.Header.Get("Content-Type"), objectstore.Provenance{
			UploaderID:   r.FormValue("uploaderId"),
			RepositoryID: r.FormValue("repositoryId"),
		})
		if err != nil {
			httpx.Fail(w, err)
			return
		}
		httpx.Created(w, "blob stored", map[string]any{
			"hash":             rec.Hash,
			"size":             rec.ByteSize,
			"originalFilename": rec.OriginalName,
			"contentType":      rec.ContentType,
		})
	})

	mux.HandleFunc("GET /blobs/{hash}", func(w http.ResponseWriter, r *http.Request) {
		rc, rec, err := store.GetBlob(r.Context(), r.PathValue("hash"))
		if err != nil {
			httpx.Fail(w, err)
			return
		}
		defer rc.Close()
		ct := rec.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("Content-Length", strconv.FormatInt(rec.ByteSize, 10))
		w.Header().Set("ETag", `"sha256:`+rec.Hash+`"`)
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, rc); err != nil {
			// Headers are already out; kill the connection instead of
			// trying to rewrite a JSON error body.
			log.Printf("blob stream %s aborted: %v", rec.Hash, err)
			panic(http.ErrAbortHandler)
		}
	})

	mux.HandleFunc("GET /blobs/repo/{repositoryId}", func(w http.ResponseWriter, r *http.Request) {
		objects, err := store.ListByRepository(r.Context(), r.PathValue("repositoryId"), r.URL.Query().Get("userId"))
		if err != nil {
			httpx.Fail(w, err)
			return
		}
		httpx.OK(w, "objects listed", map[string]any{"objects": objects, "count": len(objects)})
	})

	mux.HandleFunc("POST /trees", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Entries      []object.TreeEntry `json:"entries"`
			RepositoryID string             `json:"repositoryId"`
			UploaderID   string             `json:"uploaderId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.Fail(w, apperr.BadRequest("request body is not valid JSON"))
			return
		}
		rec, err := store.PutTree(r.Context(), req.Entries, objectstore.Provenance{
			UploaderID:   req.UploaderID,
			RepositoryID: req.RepositoryID,
		})
		if err != nil {
			httpx.Fail(w, err)
			return
		}
		httpx.Created(w, "tree stored", map[string]any{
			"hash":         rec.Hash,
			"entriesCount": len(req.Entries),
		})
	})

	mux.HandleFunc("GET /trees/{hash}", func(w http.ResponseWriter, r *http.Request) {
		tree, err := store.GetTree(r.Context(), r.PathValue("hash"))
		if err != nil {
			httpx.Fail(w, err)
			return
		}
		httpx.OK(w, "tree retrieved", tree)
	})

	mux.HandleFunc("POST /commits", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Commit       object.Commit `json:"commit"`
			RepositoryID string        `json:"repositoryId"`
			UploaderID   string        `json:"uploaderId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.Fail(w, apperr.BadRequest("request body is not valid JSON"))
			return
		}
		rec, err := store.PutCommit(r.Context(), req.Commit, objectstore.Provenance{
			UploaderID:   req.UploaderID,
			RepositoryID: req.RepositoryID,
		})
		if err != nil {
			httpx.Fail(w, err)
			return
		}
		httpx.Created(w, "commit stored", map[string]any{"hash": rec.Hash})
	})

	mux.HandleFunc("GET /commits/{hash}", func(w http.ResponseWriter, r *http.Request) {
		c, err := store.GetCommit(r.Context(), r.PathValue("hash"))
		if err != nil {
			httpx.Fail(w, err)
			return
		}
		httpx.OK(w, "commit retrieved", c)
	})

	mux.HandleFunc("HEAD /objects/{hash}", func(w http.ResponseWriter, r *http.Request) {
		ok, err := store.Exists(r.Context(), r.PathValue("hash"))
		if err != nil {
			w.WriteHeader(apperr.HTTPStatus(err))
			return
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("GET /objects/{hash}/meta", func(w http.ResponseWriter, r *http.Request) {
		rec, err := store.GetMeta(r.Context(), r.PathValue("hash"))
		if err != nil {
			httpx.Fail(w, err)
			return
		}
		httpx.OK(w, "object metadata", rec)
	})

	return mux
}
