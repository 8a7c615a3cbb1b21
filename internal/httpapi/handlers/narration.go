package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/park285/chess-audio-guide/internal/guide"
	"github.com/park285/chess-audio-guide/internal/httpapi/response"
	"github.com/park285/chess-audio-guide/internal/msgcat"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// NarrationHandler attaches browsers to a session's narration hub.
type NarrationHandler struct {
	guide          *guide.Service
	originPatterns []string
	logger         *zap.Logger
	errorResponder
}

func NewNarrationHandler(svc *guide.Service, messages *msgcat.Catalog, originPatterns []string, logger *zap.Logger) *NarrationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NarrationHandler{
		guide:          svc,
		originPatterns: originPatterns,
		logger:         logger,
		errorResponder: errorResponder{messages: messages},
	}
}

// GET /api/sessions/:id/narration (websocket)
func (h *NarrationHandler) Stream(c *gin.Context) {
	sess, err := h.guide.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respond(c, err)
		return
	}
	hub := sess.Hub()
	if hub == nil {
		msg := h.messages.Text("errors.narration_headless", nil, "session has no browser narration")
		response.RespondMessage(c, http.StatusConflict, "narration_headless", msg)
		return
	}
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("narration_accept_failed", zap.String("session_id", sess.ID()), zap.Error(err))
		return
	}
	if err := hub.Serve(c.Request.Context(), conn); err != nil {
		h.logger.Debug("narration_stream_closed", zap.String("session_id", sess.ID()), zap.Error(err))
	}
}
