// Package httptransport is the thin HTTP layer over the sync engine and the
// credential cache. Handlers delegate to collaborators; no revocation or
// scheduling logic lives here.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vericred/internal/cache"
	"vericred/internal/syncengine"
	"vericred/internal/transport/http/json"
	dErrors "vericred/pkg/domain-errors"
	httpErrors "vericred/pkg/http-errors"
)

// Handler serves the sync daemon's endpoints.
type Handler struct {
	engine *syncengine.Engine
	store  cache.Store
	logger *slog.Logger
}

func NewHandler(engine *syncengine.Engine, store cache.Store, logger *slog.Logger) *Handler {
	return &Handler{
		engine: engine,
		store:  store,
		logger: logger,
	}
}

// handleStatus reports the scheduler state plus the cache's last sync time.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	lastSync, err := h.store.LastSyncTime(r.Context())
	if err != nil {
		httpErrors.Write(w, err)
		return
	}

	json.WriteJSON(w, http.StatusOK, map[string]any{
		"auto_sync": h.engine.AutoSyncStatus(),
		"last_sync": lastSync,
	})
}

// handleSync triggers one bulk pass. A pass already in flight answers 409
// rather than queueing.
func (h *Handler) handleSync(w http.ResponseWriter, r *http.Request) {
	result := h.engine.Sync(r.Context())
	json.WriteJSON(w, syncStatus(result), result)
}

// handleForceSync clears the in-flight guard and runs a pass regardless.
func (h *Handler) handleForceSync(w http.ResponseWriter, r *http.Request) {
	result := h.engine.ForceSync(r.Context())
	json.WriteJSON(w, syncStatus(result), result)
}

func syncStatus(result *syncengine.Result) int {
	for _, se := range result.Errors {
		if se.Message == "Sync already in progress" {
			return http.StatusConflict
		}
	}
	if !result.Success {
		return http.StatusMultiStatus
	}
	return http.StatusOK
}

// handleCredentialStatus answers the cached revocation status without
// touching the network; that is the whole point of the cache.
func (h *Handler) handleCredentialStatus(w http.ResponseWriter, r *http.Request) {
	vcID := chi.URLParam(r, "id")
	entry, err := h.store.Get(r.Context(), vcID)
	if err != nil {
		httpErrors.Write(w, err)
		return
	}

	json.WriteJSON(w, http.StatusOK, map[string]any{
		"vc_id":             entry.VCID,
		"revocation_status": entry.RevocationStatus,
		"cached_at":         entry.Metadata.CachedAt,
		"expires_at":        entry.Metadata.ExpiresAt,
	})
}

// handleCredentialSync runs a targeted sync for one credential.
func (h *Handler) handleCredentialSync(w http.ResponseWriter, r *http.Request) {
	vcID := chi.URLParam(r, "id")
	if err := h.engine.SyncSingleCredential(r.Context(), vcID); err != nil {
		httpErrors.Write(w, err)
		return
	}
	h.handleCredentialStatus(w, r)
}

// handleRevocationList reports the cached snapshot's roll-up.
func (h *Handler) handleRevocationList(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.RevocationList(r.Context())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			httpErrors.Write(w, dErrors.New(dErrors.CodeNotFound, "no revocation list synced yet"))
			return
		}
		httpErrors.Write(w, err)
		return
	}

	json.WriteJSON(w, http.StatusOK, map[string]any{
		"merkle_root": list.MerkleRoot,
		"stats":       list.Stats(),
	})
}

// handleValidate re-verifies the whole cache against the chain and returns
// the credential IDs that failed.
func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	invalid, err := h.engine.ValidateCachedCredentials(r.Context())
	if err != nil {
		httpErrors.Write(w, err)
		return
	}
	if invalid == nil {
		invalid = []string{}
	}

	json.WriteJSON(w, http.StatusOK, map[string]any{
		"invalid":      invalid,
		"validated_at": time.Now().UTC(),
	})
}
