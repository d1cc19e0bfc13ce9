package middleware

import (
	"net/http"
	"strings"

	"github.com/phrazzld/marketing-jobs/internal/api/shared"
)

// OwnerIDHeader carries the caller identity asserted by the upstream gateway
const OwnerIDHeader = "X-Owner-ID"

// maxOwnerIDLength bounds the accepted header value
const maxOwnerIDLength = 128

// RequireOwner rejects requests without an owner identity and stores it in
// the request context otherwise.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID := strings.TrimSpace(r.Header.Get(OwnerIDHeader))
		if ownerID == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Missing "+OwnerIDHeader+" header")
			return
		}
		if len(ownerID) > maxOwnerIDLength {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid "+OwnerIDHeader+" header")
			return
		}

		next.ServeHTTP(w, r.WithContext(shared.SetOwnerID(r.Context(), ownerID)))
	})
}
