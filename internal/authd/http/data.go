package http

import (
	"net/http"

	"github.com/danielballan/auth-adventures/pkg/httpx"
)

// DataHandler serves GET /v1/data, a minimal protected resource. It exists
// so the flow has something real to exercise end to end: a request here
// only succeeds with a live access token.
type DataHandler struct{}

type dataResponse struct {
	Data   []int  `json:"data"`
	WhoAmI string `json:"who_am_i"`
}

func (h *DataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	subject := httpx.SubjectFromContext(r.Context())
	if subject == "" {
		// AuthnMiddleware guarantees a subject; reaching here is a wiring bug.
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, dataResponse{
		Data:   []int{1, 2, 3},
		WhoAmI: subject,
	})
}
