package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/qlbh/storefront/internal/session"
)

type loginReq struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type loginResp struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// login trusts the identity it is handed; authentication lives in the
// external identity provider. All this does is issue a session token and a
// fresh cart for it.
func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user_id"})
		return
	}
	role := session.Role(req.Role)
	if role == "" {
		role = session.RoleCustomer
	}
	if role != session.RoleCustomer && role != session.RoleAdmin {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown role"})
		return
	}
	s := h.Sessions.Issue(req.UserID, role)
	writeJSON(w, http.StatusOK, loginResp{Token: s.Token, UserID: s.CustomerID, Role: string(s.Role)})
}

// logout discards the session and the cart with it.
func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Revoke(sessionFrom(r).Token)
	w.WriteHeader(http.StatusNoContent)
}
