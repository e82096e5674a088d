package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/logger"
	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/tools"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	registry *tools.Registry
	diag     tools.Diagnostics
	mode     string
	log      *logger.Logger
}

func NewHandler(registry *tools.Registry, diag tools.Diagnostics, mode string, log *logger.Logger) *Handler {
	return &Handler{
		registry: registry,
		diag:     diag,
		mode:     mode,
		log:      log.Named("http"),
	}
}

// toolResponse is the wire form of a tool call over HTTP and websocket.
type toolResponse struct {
	ID      string `json:"id,omitempty"`
	CallID  string `json:"call_id,omitempty"`
	Success bool   `json:"success"`
	Text    string `json:"text"`
}

func newToolResponse(res *tools.ToolResult) toolResponse {
	return toolResponse{CallID: res.CallID, Success: res.Success, Text: res.Text()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"mode":    h.mode,
		"tools":   len(h.registry.List()),
	})
}

func (h *Handler) ListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.List())
}

// CallTool runs the tool named in the path. The body, if any, is the
// argument object.
func (h *Handler) CallTool(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, found := h.registry.Get(name); !found {
		writeJSONError(w, http.StatusNotFound, "unknown tool: "+name)
		return
	}

	args := map[string]any{}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&args); err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.registry.Execute(r.Context(), name, args)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, newToolResponse(res))
}

func (h *Handler) TestEndpoints(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	results, err := h.diag.TestEndpoints(ctx)
	if err != nil {
		h.log.Warnw("endpoint check failed", "error", err)
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":      h.mode,
		"endpoints": results,
	})
}
