package mid

import (
	"context"
	"errors"
	"net/http"

	"github.com/avisen/ledger/business/web/errs"
	"github.com/avisen/ledger/foundation/web"
)

// ErrNotReady is returned while the node has not finished bootstrapping.
var ErrNotReady = errors.New("node is not synced")

// Ready rejects requests with a 503 until the ready function reports the
// node can accept ledger changes.
func Ready(ready func() bool) web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if !ready() {
				return errs.NewTrusted(ErrNotReady, http.StatusServiceUnavailable)
			}

			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
