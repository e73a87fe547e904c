package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/ariefcatur/go-marketplace-core/internal/kafka"
	"github.com/ariefcatur/go-marketplace-core/internal/orders"
	"github.com/ariefcatur/go-marketplace-core/internal/prefs"
	"github.com/ariefcatur/go-marketplace-core/internal/redisx"
	"github.com/ariefcatur/go-marketplace-core/internal/theme"
)

type OrderStore interface {
	GetOrderStatus(ctx context.Context, orderID string) (orders.Status, error)
	UpdateStatus(ctx context.Context, orderID string, from, to orders.Status) error
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type OrdersHandler struct {
	Repo     OrderStore
	Producer Publisher
	Redis    redis.Cmdable
	Prefs    *prefs.Store // optional; colors resolve against the default palette without it
	Service  string
	Log      *zap.Logger
}

const (
	viewerShopOwner = "shop-owner"
	viewerCustomer  = "customer"
)

type changeStatusReq struct {
	Status string `json:"status"`
	Viewer string `json:"viewer"`
}

type changeStatusResp struct {
	orders.StatusView
	Changed bool `json:"changed"`
}

type actionView struct {
	Key    string        `json:"key"`
	Label  string        `json:"label"`
	Target orders.Status `json:"target_status"`
	Color  theme.Token   `json:"color"`
	Hex    string        `json:"hex"`
}

type actionsResp struct {
	orders.StatusView
	Viewer  string       `json:"viewer"`
	Actions []actionView `json:"actions"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/actions", h.listActions)
	r.Post("/orders/{id}/status", h.changeStatus)
}

func (h *OrdersHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func (h *OrdersHandler) palette() theme.Palette {
	if h.Prefs == nil {
		return theme.PaletteFor(theme.PresetDefault)
	}
	return h.Prefs.Palette()
}

func parseViewer(s string) (owner bool, ok bool) {
	switch s {
	case viewerShopOwner:
		return true, true
	case viewerCustomer:
		return false, true
	}
	return false, false
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	v, err := h.statusView(ctx, orderID)
	if err != nil {
		h.writeRepoError(w, orderID, err)
		return
	}
	writeJSON(w, http.StatusOK, v.WithPalette(h.palette()))
}

func (h *OrdersHandler) listActions(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	viewer := r.URL.Query().Get("viewer")
	owner, ok := parseViewer(viewer)
	if !ok {
		writeError(w, http.StatusBadRequest, "viewer must be shop-owner or customer")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	v, err := h.statusView(ctx, orderID)
	if err != nil {
		h.writeRepoError(w, orderID, err)
		return
	}

	pal := h.palette()
	buttons := orders.StatusButtons(v.Status, owner, nil)
	out := actionsResp{StatusView: v.WithPalette(pal), Viewer: viewer, Actions: make([]actionView, 0, len(buttons))}
	for _, b := range buttons {
		out.Actions = append(out.Actions, actionView{
			Key: b.Key, Label: b.Label, Target: b.Target, Color: b.Color, Hex: pal.Color(b.Color),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// changeStatus presses the button whose target matches the request. The
// current status is read from the database, not the cache.
func (h *OrdersHandler) changeStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req changeStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	target, ok := orders.ParseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	owner, ok := parseViewer(req.Viewer)
	if !ok {
		writeError(w, http.StatusBadRequest, "viewer must be shop-owner or customer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	current, err := h.Repo.GetOrderStatus(ctx, orderID)
	if err != nil {
		h.writeRepoError(w, orderID, err)
		return
	}

	var (
		label   string
		changed bool
		txErr   error
	)
	onTransition := func(to orders.Status) {
		if to == current {
			return
		}
		if txErr = h.Repo.UpdateStatus(ctx, orderID, current, to); txErr != nil {
			return
		}
		changed = true
		h.cacheStatus(ctx, orders.NewStatusView(orderID, to))
		h.publishStatusChanged(r, orderID, current, to, owner, label)
	}

	var pressed *orders.Button
	buttons := orders.StatusButtons(current, owner, onTransition)
	for i := range buttons {
		if buttons[i].Target == target {
			pressed = &buttons[i]
			break
		}
	}
	if pressed == nil {
		writeError(w, http.StatusUnprocessableEntity,
			fmt.Sprintf("no %s action to %s from %s", req.Viewer, target, current))
		return
	}
	label = pressed.Label
	pressed.Action()

	if txErr != nil {
		h.writeRepoError(w, orderID, txErr)
		return
	}
	result := current
	if changed {
		result = target
	}
	writeJSON(w, http.StatusOK, changeStatusResp{
		StatusView: orders.NewStatusView(orderID, result).WithPalette(h.palette()),
		Changed:    changed,
	})
}

// statusView tries the cache first and falls back to the database,
// refreshing the cache on the way out.
func (h *OrdersHandler) statusView(ctx context.Context, orderID string) (orders.StatusView, error) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		var v orders.StatusView
		if json.Unmarshal([]byte(s), &v) == nil && v.Status.Valid() {
			return v, nil
		}
	}

	status, err := h.Repo.GetOrderStatus(ctx, orderID)
	if err != nil {
		return orders.StatusView{}, err
	}
	v := orders.NewStatusView(orderID, status)
	h.cacheStatus(ctx, v)
	return v, nil
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, v orders.StatusView) {
	b, _ := json.Marshal(v)
	key := fmt.Sprintf(redisx.KeyOrderStatus, v.OrderID)
	if err := h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err(); err != nil {
		h.logger().Warn("cache order status failed", zap.String("order_id", v.OrderID), zap.Error(err))
	}
}

func (h *OrdersHandler) publishStatusChanged(r *http.Request, orderID string, from, to orders.Status, owner bool, label string) {
	if h.Producer == nil {
		return
	}
	traceID := r.Header.Get("X-Request-Id")
	if traceID == "" {
		traceID = middleware.GetReqID(r.Context())
	}
	ev := orders.NewEnvelope(orders.EventOrderStatusChanged, h.Service, traceID, orderID,
		orders.StatusChangedPayload{
			OrderID:   orderID,
			OldStatus: from,
			NewStatus: to,
			ByOwner:   owner,
			Label:     label,
		})
	h.Producer.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev), ev.Headers()...)
}

func (h *OrdersHandler) writeRepoError(w http.ResponseWriter, orderID string, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, orders.ErrStatusConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, orders.ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger().Error("order request failed", zap.String("order_id", orderID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
