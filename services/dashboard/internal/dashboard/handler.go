package dashboard

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/appetiteclub/posboard/pkg/normalize"
	"github.com/appetiteclub/posboard/services/dashboard/internal/posapi"
	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const MaxBodyBytes = 1 << 20

const defaultKeepalive = 30 * time.Second

type HandlerDeps struct {
	Backend      Backend
	Bus          UpdateBus
	PollInterval time.Duration

	// AllowedOrigins lists the browser origins that may open /updates/ws.
	// Empty means same-origin only; "*" allows any origin.
	AllowedOrigins []string
}

type Handler struct {
	backend      Backend
	bus          UpdateBus
	pollInterval time.Duration
	keepalive    time.Duration
	upgrader     websocket.Upgrader
	logger       aqm.Logger
	config       *aqm.Config
	tlm          *telemetry.HTTP
}

func NewHandler(deps HandlerDeps, config *aqm.Config, logger aqm.Logger) *Handler {
	if logger == nil {
		logger = aqm.NewNoopLogger()
	}
	return &Handler{
		backend:      deps.Backend,
		bus:          deps.Bus,
		pollInterval: deps.PollInterval,
		keepalive:    defaultKeepalive,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(deps.AllowedOrigins),
		},
		logger: logger,
		config: config,
		tlm:    telemetry.NewHTTP(),
	}
}

// originChecker returns nil for an empty list, which leaves gorilla's
// same-origin check in place.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		origin = strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		if origin != "" {
			set[origin] = true
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return set[strings.ToLower(origin)]
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(SessionMiddleware)
		r.Get("/{resource}", h.ListResource)
		r.Post("/{resource}", h.CreateRecord)
		r.Put("/{resource}/{id}", h.UpdateRecord)
		r.Delete("/{resource}/{id}", h.DeleteRecord)
		r.Post("/{resource}/{id}/{action}", h.RunAction)
	})

	r.Route("/dashboards", func(r chi.Router) {
		r.Use(SessionMiddleware)
		r.Get("/", h.ListDashboards)
		r.Get("/{resource}/stream", h.StreamDashboard)
	})

	r.Get("/updates/stream", h.StreamUpdates)
	r.Get("/updates/ws", h.UpdatesWebSocket)
}

func (h *Handler) log(r *http.Request) aqm.Logger {
	return h.logger.With("request_id", aqm.RequestIDFrom(r.Context()))
}

type listResponse struct {
	Items        []normalize.Record `json:"items"`
	MatchedPath  string             `json:"matched_path"`
	Dropped      int                `json:"dropped"`
	EmptySuccess bool               `json:"empty_success"`
}

type mutationResponse struct {
	Items     []normalize.Record `json:"items"`
	Published string             `json:"published,omitempty"`
}

func (h *Handler) ListDashboards(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListDashboards")
	defer finish()

	sess := getSessionFromContext(r.Context())
	resources := ResourcesFor(sess.Role)
	if resources == nil {
		aqm.RespondError(w, http.StatusForbidden, "Unknown role")
		return
	}

	aqm.Respond(w, http.StatusOK, map[string]interface{}{
		"role":      sess.Role,
		"resources": resources,
	}, nil)
}

func (h *Handler) ListResource(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.ListResource")
	defer finish()
	log := h.log(r)

	sess := getSessionFromContext(r.Context())
	res, ok := h.resolve(w, sess, chi.URLParam(r, "resource"))
	if !ok {
		return
	}

	result, err := h.backend.List(r.Context(), sess, res.Name)
	if err != nil {
		h.respondBackendError(w, log, res.Name, err)
		return
	}

	aqm.Respond(w, http.StatusOK, listResponse{
		Items:        result.Items,
		MatchedPath:  result.MatchedPath,
		Dropped:      result.Dropped,
		EmptySuccess: result.EmptySuccess,
	}, nil)
}

func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.CreateRecord")
	defer finish()
	h.mutate(w, r, posapi.ActionCreate, "")
}

func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.UpdateRecord")
	defer finish()
	h.mutate(w, r, posapi.ActionUpdate, chi.URLParam(r, "id"))
}

func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.DeleteRecord")
	defer finish()
	h.mutate(w, r, posapi.ActionDelete, chi.URLParam(r, "id"))
}

func (h *Handler) RunAction(w http.ResponseWriter, r *http.Request) {
	w, r, finish := h.tlm.Start(w, r, "Handler.RunAction")
	defer finish()

	action := chi.URLParam(r, "action")
	switch action {
	case posapi.ActionList, posapi.ActionCreate:
		aqm.RespondError(w, http.StatusBadRequest, "Unsupported action")
		return
	}
	h.mutate(w, r, action, chi.URLParam(r, "id"))
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, action, id string) {
	log := h.log(r)
	ctx := r.Context()

	sess := getSessionFromContext(ctx)
	res, ok := h.resolve(w, sess, chi.URLParam(r, "resource"))
	if !ok {
		return
	}
	if _, ok := res.Endpoint(action); !ok {
		aqm.RespondError(w, http.StatusBadRequest, "Unsupported action")
		return
	}

	fields, err := decodeFields(r)
	if err != nil {
		aqm.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.backend.Mutate(ctx, sess, res.Name, action, id, fields)
	if err != nil {
		h.respondBackendError(w, log, res.Name, err)
		return
	}

	resp := mutationResponse{Items: result.Items}
	if kind, ok := res.KindFor(action); ok && h.bus != nil {
		if id == "" && len(result.Items) > 0 {
			id = result.Items[0].String(res.IDAliases...)
		}
		payload := map[string]interface{}{
			"resource":  res.Name,
			"action":    action,
			"id":        id,
			"branch_id": sess.BranchID,
		}
		if _, err := h.bus.Publish(ctx, kind, payload); err != nil {
			log.Error("cannot publish update", "kind", kind, "error", err)
		} else {
			resp.Published = kind
		}
	}

	status := http.StatusOK
	if action == posapi.ActionCreate {
		status = http.StatusCreated
	}
	aqm.Respond(w, status, resp, nil)
}

// resolve checks that resource exists and that the caller's dashboard shows it.
func (h *Handler) resolve(w http.ResponseWriter, sess posapi.Session, name string) (posapi.Resource, bool) {
	res, ok := posapi.Lookup(name)
	if !ok {
		aqm.RespondError(w, http.StatusNotFound, "Unknown resource")
		return posapi.Resource{}, false
	}
	if !Offers(sess.Role, res.Name) {
		aqm.RespondError(w, http.StatusForbidden, "Resource not available for this role")
		return posapi.Resource{}, false
	}
	if h.backend == nil {
		aqm.RespondError(w, http.StatusServiceUnavailable, "Backend not configured")
		return posapi.Resource{}, false
	}
	return res, true
}

func (h *Handler) respondBackendError(w http.ResponseWriter, log aqm.Logger, resource string, err error) {
	if apiErr, ok := posapi.AsError(err); ok {
		log.Info("backend call failed", "resource", resource, "kind", string(apiErr.Kind), "error", err)
		aqm.RespondError(w, http.StatusBadGateway, apiErr.Message)
		return
	}

	switch {
	case errors.Is(err, posapi.ErrUnknownResource):
		aqm.RespondError(w, http.StatusNotFound, "Unknown resource")
	case errors.Is(err, posapi.ErrUnsupportedAction):
		aqm.RespondError(w, http.StatusBadRequest, "Unsupported action")
	case errors.Is(err, posapi.ErrMissingIdentifier):
		aqm.RespondError(w, http.StatusBadRequest, "Missing identifier")
	default:
		log.Errorf("cannot call backend for %s: %v", resource, err)
		aqm.RespondError(w, http.StatusInternalServerError, "Request failed")
	}
}

// decodeFields reads an optional JSON object body.
func decodeFields(r *http.Request) (map[string]interface{}, error) {
	if r.Body == nil {
		return nil, nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.UseNumber()

	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	for k := range fields {
		if strings.TrimSpace(k) == "" {
			delete(fields, k)
		}
	}
	return fields, nil
}
