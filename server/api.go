package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
	"github.com/go-chi/chi/v5"
	"github.com/tutumi2011kt-gif/mulmochat/callbacks"
	"github.com/tutumi2011kt-gif/mulmochat/providers/browseapi"
	"github.com/tutumi2011kt-gif/mulmochat/providers/imageapi"
	"github.com/tutumi2011kt-gif/mulmochat/providers/realtime"
	"github.com/tutumi2011kt-gif/mulmochat/store"
	"github.com/tutumi2011kt-gif/mulmochat/tools"
)

// StartResponse is returned by /api/start
type StartResponse struct {
	Success      bool                   `json:"success"`
	Message      string                 `json:"message"`
	SessionID    string                 `json:"sessionId"`
	EphemeralKey string                 `json:"ephemeralKey"`
	ExpiresAt    int64                  `json:"expiresAt,omitempty"`
	GoogleMapKey string                 `json:"googleMapKey,omitempty"`
	Tools        []tools.ToolDefinition `json:"tools"`
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.deps.Realtime == nil {
		writeErr(w, http.StatusInternalServerError, realtime.ErrNoAPIKey.Error(), "")
		return
	}

	sess := tools.NewSessionContext("", s.Capabilities()...)
	defs := s.deps.Dispatcher.Registry().ListDefinitions(sess.Capabilities)

	secret, err := s.deps.Realtime.CreateClientSecret(ctx, s.deps.Realtime.Session(s.cfg.Instructions, defs))
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "start_session",
			"err", err.Error(),
		)
		writeErr(w, http.StatusInternalServerError, "Failed to generate ephemeral key", err.Error())
		return
	}

	if err = s.deps.Store.Create(ctx, sess); err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "create_session",
			"session", sess.ID,
			"err", err.Error(),
		)
		writeErr(w, http.StatusInternalServerError, "Failed to start session", err.Error())
		return
	}
	if s.deps.Scratchpad != nil {
		s.deps.Scratchpad.StartSession(sess.ID)
	}

	logger.ContextKV(ctx, xlog.INFO,
		"status", "session_started",
		"session", sess.ID,
		"tools", len(defs),
	)

	writeJSON(w, http.StatusOK, StartResponse{
		Success:      true,
		Message:      "Session started",
		SessionID:    sess.ID,
		EphemeralKey: secret.Value,
		ExpiresAt:    secret.ExpiresAt,
		GoogleMapKey: s.cfg.GoogleMapKey,
		Tools:        defs,
	})
}

func (s *Server) generateImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := new(imageapi.Request)
	if err := decodeBody(w, r, req, maxImageBodySize); err != nil {
		writeDecodeErr(w, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeErr(w, http.StatusBadRequest, "Prompt is required", "")
		return
	}

	res, err := s.deps.Images.GenerateImage(ctx, req)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "generate_image",
			"prompt", slices.StringUpto(req.Prompt, 64),
			"err", err.Error(),
		)
		writeErr(w, http.StatusInternalServerError, "Failed to generate image", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) browse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := new(browseapi.Request)
	if err := decodeBody(w, r, req, maxBodySize); err != nil {
		writeDecodeErr(w, err)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeErr(w, http.StatusBadRequest, "URL is required", "")
		return
	}

	res, err := s.deps.Browser.Browse(ctx, req)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "browse",
			"url", slices.StringUpto(req.URL, 128),
			"err", err.Error(),
		)
		writeErr(w, http.StatusInternalServerError, "Failed to browse webpage", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ToolsResponse is returned by the session tools list
type ToolsResponse struct {
	SessionID string                 `json:"sessionId"`
	Tools     []tools.ToolDefinition `json:"tools"`
}

func (s *Server) listTools(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ToolsResponse{
		SessionID: sess.ID,
		Tools:     s.deps.Dispatcher.Registry().ListDefinitions(sess.Capabilities),
	})
}

func (s *Server) executeTool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := chi.URLParam(r, "tool_name")

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeDecodeErr(w, err)
		return
	}

	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	res, err := s.deps.Dispatcher.ExecuteJSON(ctx, sess, name, raw)
	if err != nil {
		code := http.StatusBadRequest
		switch {
		case errors.Is(err, tools.ErrToolNotFound):
			code = http.StatusNotFound
		case errors.Is(err, tools.ErrToolUnavailable):
			code = http.StatusForbidden
		}
		writeJSON(w, code, res)
		return
	}

	if err = s.deps.Store.Save(ctx, sess); err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "save_session",
			"session", sess.ID,
			"err", err.Error(),
		)
		writeErr(w, http.StatusInternalServerError, "Failed to save session", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ImagesResponse is returned by the session images list
type ImagesResponse struct {
	SessionID string   `json:"sessionId"`
	Images    []string `json:"images"`
}

func (s *Server) listImages(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ImagesResponse{
		SessionID: sess.ID,
		Images:    sess.Images(),
	})
}

// EndResponse is returned when the session ends
type EndResponse struct {
	Success   bool                    `json:"success"`
	SessionID string                  `json:"sessionId"`
	Stats     *callbacks.SessionStats `json:"stats,omitempty"`
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var stats *callbacks.SessionStats
	if s.deps.Scratchpad != nil {
		var activity []byte
		stats, activity = s.deps.Scratchpad.EndSession(sess.ID)
		if len(activity) > 0 {
			logger.ContextKV(ctx, xlog.DEBUG,
				"status", "session_activity",
				"session", sess.ID,
				"activity", string(activity),
			)
		}
	}

	if err := s.deps.Store.Delete(ctx, sess.ID); err != nil {
		writeErr(w, http.StatusInternalServerError, "Failed to end session", err.Error())
		return
	}

	logger.ContextKV(ctx, xlog.INFO,
		"status", "session_ended",
		"session", sess.ID,
		"images", sess.ImageCount(),
	)
	writeJSON(w, http.StatusOK, EndResponse{
		Success:   true,
		SessionID: sess.ID,
		Stats:     stats,
	})
}

// session returns the session of the request,
// or writes the error response.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*tools.SessionContext, bool) {
	id := chi.URLParam(r, "session_id")
	sess, err := s.deps.Store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusNotFound, "Session not found", id)
			return nil, false
		}
		writeErr(w, http.StatusInternalServerError, "Failed to load session", err.Error())
		return nil, false
	}
	return sess, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any, limit int64) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(err, "failed to decode request")
	}
	return nil
}

// writeDecodeErr writes 413 for oversize bodies, and 400 otherwise
func writeDecodeErr(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeErr(w, http.StatusRequestEntityTooLarge, "Request too large",
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	writeErr(w, http.StatusBadRequest, "Invalid request", err.Error())
}
