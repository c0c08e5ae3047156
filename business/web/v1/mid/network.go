package mid

import (
	"context"
	"net/http"
	"strings"

	"github.com/avisen/ledger/business/web/errs"
	"github.com/avisen/ledger/foundation/blockchain/network"
	"github.com/avisen/ledger/foundation/web"
)

// openPrefixes are the paths that can be called without a network id.
var openPrefixes = []string{"/status", "/util", "/docs", "/events"}

// NetworkID echoes the node's network id on every response and rejects
// requests that don't carry the same id, except for the open paths.
func NetworkID(networkID string) web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.Header().Set(network.NetworkIDHeader, networkID)

			if r.Method == http.MethodOptions || isOpen(r.URL.Path) {
				return handler(ctx, w, r)
			}

			id := r.Header.Get(network.NetworkIDHeader)
			switch {
			case id == "":
				return errs.NewTrustedf(http.StatusBadRequest, "required %s is missing", network.NetworkIDHeader)

			case id != networkID:
				return errs.NewTrustedf(http.StatusBadRequest, "network id %s does not match expected network id", id)
			}

			return handler(ctx, w, r)
		}

		return h
	}

	return m
}

func isOpen(path string) bool {
	for _, prefix := range openPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
