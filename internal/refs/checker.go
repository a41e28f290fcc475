package refs

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gitstore/internal/apperr"
	"gitstore/internal/objectstore"
)

// CommitChecker confirms a commit hash resolves to previously stored
// content. In the deployed topology this is a network round trip to the
// object-store service; in a single process it is a direct lookup.
type CommitChecker interface {
	CommitExists(ctx context.Context, hash string) (bool, error)
}

// HTTPChecker probes the object-store service with a lightweight HEAD
// request; success or 404 map to the boolean, anything else is a failure.
type HTTPChecker struct {
	base   string
	client *http.Client
}

func NewHTTPChecker(base string, timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPChecker{base: base, client: &http.Client{Timeout: timeout}}
}

func (c *HTTPChecker) CommitExists(ctx context.Context, hash string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.base+"/objects/"+hash, nil)
	if err != nil {
		return false, apperr.Internal(err, "object store request failed")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, apperr.Internal(err, "object store unreachable")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, apperr.Internal(
			fmt.Errorf("object store returned status %d", resp.StatusCode), "object store error")
	}
}

// LocalChecker probes an in-process object store.
type LocalChecker struct {
	Store *objectstore.Store
}

func (c LocalChecker) CommitExists(ctx context.Context, hash string) (bool, error) {
	return c.Store.Exists(ctx, hash)
}
