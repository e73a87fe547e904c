package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-marketplace-core/internal/kafka"
	"github.com/ariefcatur/go-marketplace-core/internal/orders"
	"github.com/ariefcatur/go-marketplace-core/internal/prefs"
	"github.com/ariefcatur/go-marketplace-core/internal/theme"
)

type PrefsHandler struct {
	Store *prefs.Store
}

type presetReq struct {
	Preset string `json:"preset"`
}

type sessionReq struct {
	UserID string `json:"user_id"`
}

type themeResp struct {
	UserID  string        `json:"user_id,omitempty"`
	Preset  theme.Preset  `json:"preset"`
	State   string        `json:"state"`
	Palette theme.Palette `json:"palette"`
}

type themeListResp struct {
	Default theme.Preset   `json:"default"`
	Presets []theme.Preset `json:"presets"`
}

func (h *PrefsHandler) Register(r chi.Router) {
	r.Get("/themes", h.listThemes)
	r.Get("/themes/{preset}", h.getTheme)
	r.Get("/prefs/theme", h.getActive)
	r.Put("/prefs/theme", h.setActive)
	r.Put("/prefs/session", h.setSession)
}

func (h *PrefsHandler) view() themeResp {
	return themeResp{
		UserID:  h.Store.CurrentUser(),
		Preset:  h.Store.Active(),
		State:   h.Store.State().String(),
		Palette: h.Store.Palette(),
	}
}

func (h *PrefsHandler) listThemes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, themeListResp{Default: h.Store.Default(), Presets: theme.Presets()})
}

func (h *PrefsHandler) getTheme(w http.ResponseWriter, r *http.Request) {
	p, ok := theme.Lookup(theme.Preset(chi.URLParam(r, "preset")))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown preset")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PrefsHandler) getActive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.view())
}

// setActive rejects unknown presets here; the store itself would only
// log and ignore them.
func (h *PrefsHandler) setActive(w http.ResponseWriter, r *http.Request) {
	var req presetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	p, ok := theme.ParsePreset(req.Preset)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown preset")
		return
	}
	h.Store.SetPreset(p)
	writeJSON(w, http.StatusOK, h.view())
}

// setSession switches identity. An empty user_id signs out.
func (h *PrefsHandler) setSession(w http.ResponseWriter, r *http.Request) {
	var req sessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	h.Store.ResolveForUser(ctx, req.UserID)
	writeJSON(w, http.StatusOK, h.view())
}

// PublishThemeChanges forwards every store change as a ThemeChanged event
// keyed by user id. The returned func stops forwarding.
func PublishThemeChanges(store *prefs.Store, pub Publisher, service string, log *zap.Logger) func() {
	if log == nil {
		log = zap.NewNop()
	}
	return store.Subscribe(func(c prefs.Change) {
		ev := orders.NewEnvelope(orders.EventThemeChanged, service, "", c.UserID,
			orders.ThemeChangedPayload{UserID: c.UserID, Preset: string(c.Preset)})
		pub.Publish([]byte(c.UserID), kafkax.MustMarshal(ev), ev.Headers()...)
		log.Debug("theme change published", zap.String("user_id", c.UserID), zap.String("preset", string(c.Preset)))
	})
}
