// Package access resolves a repository's owner and visibility via the
// external repository registry and evaluates read/write permission.
package access

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gitstore/internal/apperr"
)

type Level string

const (
	LevelRead  Level = "read"
	LevelWrite Level = "write"
)

// RepositoryInfo is the registry's view of a repository.
type RepositoryInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	OwnerID    string `json:"ownerId"`
	Visibility string `json:"visibility"`
}

// Registry is the external repository-metadata collaborator.
type Registry interface {
	Repository(ctx context.Context, id string) (RepositoryInfo, error)
}

// Gate composes registry lookups with the permission rules: write requires
// ownership, read requires public visibility or ownership.
type Gate struct {
	registry Registry
}

func NewGate(registry Registry) *Gate {
	return &Gate{registry: registry}
}

// Check fetches the repository and evaluates the required level. Registry
// failures propagate with their semantic class preserved.
func (g *Gate) Check(ctx context.Context, repositoryID, userID string, level Level) (RepositoryInfo, error) {
	repo, err := g.registry.Repository(ctx, repositoryID)
	if err != nil {
		return RepositoryInfo{}, err
	}
	owner := repo.OwnerID == userID
	switch level {
	case LevelWrite:
		if !owner {
			return RepositoryInfo{}, apperr.Forbidden("user %s does not own repository %s", userID, repositoryID)
		}
	case LevelRead:
		if repo.Visibility != "public" && !owner {
			return RepositoryInfo{}, apperr.Forbidden("repository %s is not visible to user %s", repositoryID, userID)
		}
	default:
		return RepositoryInfo{}, apperr.Internal(fmt.Errorf("unknown level %q", level), "access check misconfigured")
	}
	return repo, nil
}

// HTTPRegistry talks to the registry service over HTTP.
type HTTPRegistry struct {
	base   string
	client *http.Client
}

func NewHTTPRegistry(base string, timeout time.Duration) *HTTPRegistry {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPRegistry{base: base, client: &http.Client{Timeout: timeout}}
}

func (r *HTTPRegistry) Repository(ctx context.Context, id string) (RepositoryInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/repositories/"+id, nil)
	if err != nil {
		return RepositoryInfo{}, apperr.Internal(err, "registry request failed")
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return RepositoryInfo{}, apperr.Internal(err, "repository registry unreachable")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var info RepositoryInfo
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			return RepositoryInfo{}, apperr.Internal(err, "registry response malformed")
		}
		return info, nil
	case http.StatusNotFound:
		return RepositoryInfo{}, apperr.NotFound("repository %s not found", id)
	case http.StatusUnauthorized, http.StatusForbidden:
		// The registry's own authorization failure passes through unchanged.
		return RepositoryInfo{}, apperr.Forbidden("repository registry denied access to %s", id)
	default:
		return RepositoryInfo{}, apperr.Internal(
			fmt.Errorf("registry returned status %d", resp.StatusCode), "repository registry error")
	}
}
