package www

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"washcore/identity"
	"washcore/store"
)

func (h *Handlers) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	user, err := h.db.GetAdminUser(username)
	if err != nil || !checkPassword(user.PasswordHash, password) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid username or password"})
		return
	}

	session, _ := h.sessions.Get(r, sessionName)
	session.Values["authenticated"] = true
	session.Values["username"] = username
	if err := session.Save(r, w); err != nil {
		log.Printf("auth: session save error: %v", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessions.Get(r, sessionName)
	session.Values["authenticated"] = false
	session.Values["username"] = ""
	session.Save(r, w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{"status": "ok"}
	if h.health != nil {
		for k, v := range h.health() {
			status[k] = v
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handlers) handleListMachines(w http.ResponseWriter, _ *http.Request) {
	machines, err := h.db.ListMachines()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, machines)
}

type createMachineRequest struct {
	MachineID  string `json:"machineId"`
	LocationID string `json:"locationId"`
}

// handleCreateMachine seeds a machine record. New machines always enter
// the fleet AVAILABLE; reservation and start are the only paths onward.
func (h *Handlers) handleCreateMachine(w http.ResponseWriter, r *http.Request) {
	var req createMachineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MachineID == "" || req.LocationID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "machineId and locationId required"})
		return
	}
	m := &store.Machine{ID: req.MachineID, LocationID: req.LocationID, Status: store.StatusAvailable}
	if err := h.db.CreateMachine(m); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	h.db.AppendAudit("machine", m.ID, "created", "", string(m.Status), h.username(r))
	writeJSON(w, http.StatusOK, m)
}

func (h *Handlers) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := h.db.ListAuditLog(limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handlers) handleListTokens(w http.ResponseWriter, _ *http.Request) {
	tokens, err := h.db.ListAPITokens()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

type mintTokenRequest struct {
	Name string `json:"name"`
}

// handleMintToken creates an API token and returns the plaintext exactly
// once; only the bcrypt hash is stored.
func (h *Handlers) handleMintToken(w http.ResponseWriter, r *http.Request) {
	var req mintTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}

	token := uuid.NewString()
	hash, err := identity.HashToken(token)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if err := h.db.CreateAPIToken(req.Name, hash); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	h.db.AppendAudit("api_token", req.Name, "minted", "", "", h.username(r))
	writeJSON(w, http.StatusOK, map[string]string{"name": req.Name, "token": token})
}

func (h *Handlers) handleRevokeToken(w http.ResponseWriter, r *http.Request) {
	var req mintTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}
	if err := h.db.RevokeAPIToken(req.Name); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	h.db.AppendAudit("api_token", req.Name, "revoked", "", "", h.username(r))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) username(r *http.Request) string {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return ""
	}
	username, _ := session.Values["username"].(string)
	return username
}
