package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/park285/chess-audio-guide/internal/adapter/guidepresenter"
	"github.com/park285/chess-audio-guide/internal/guide"
	"github.com/park285/chess-audio-guide/internal/httpapi/response"
	"github.com/park285/chess-audio-guide/internal/msgcat"
	"github.com/park285/chess-audio-guide/pkg/guidedto"
)

type SessionHandler struct {
	guide *guide.Service
	errorResponder
}

func NewSessionHandler(svc *guide.Service, messages *msgcat.Catalog) *SessionHandler {
	return &SessionHandler{guide: svc, errorResponder: errorResponder{messages: messages}}
}

func (h *SessionHandler) reply(c *gin.Context, v guide.View, err error) {
	if err != nil {
		h.respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"state": guidepresenter.ToDTOState(v)})
}

// POST /api/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	v, err := h.guide.CreateSession(c.Request.Context())
	if err != nil {
		h.respond(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"state": guidepresenter.ToDTOState(v)})
}

// GET /api/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	v, err := h.guide.State(c.Request.Context(), c.Param("id"))
	h.reply(c, v, err)
}

// DELETE /api/sessions/:id
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.guide.Close(c.Request.Context(), c.Param("id")); err != nil {
		h.respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/sessions/:id/study
func (h *SessionHandler) LoadStudy(c *gin.Context) {
	var req guidedto.LoadStudyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	v, err := h.guide.LoadStudy(c.Request.Context(), c.Param("id"), req.StudyID)
	h.reply(c, v, err)
}

// command adapts a session operation into a handler for POST /api/sessions/:id/<op>.
func (h *SessionHandler) command(op func(ctx context.Context, id string) (guide.View, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := op(c.Request.Context(), c.Param("id"))
		h.reply(c, v, err)
	}
}

func (h *SessionHandler) Advance() gin.HandlerFunc { return h.command(h.guide.Advance) }
func (h *SessionHandler) Retreat() gin.HandlerFunc { return h.command(h.guide.Retreat) }
func (h *SessionHandler) Play() gin.HandlerFunc    { return h.command(h.guide.Play) }
func (h *SessionHandler) Pause() gin.HandlerFunc   { return h.command(h.guide.Pause) }

// PUT /api/sessions/:id/volume
func (h *SessionHandler) SetVolume(c *gin.Context) {
	var req guidedto.VolumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	v, err := h.guide.SetVolume(c.Request.Context(), c.Param("id"), *req.Volume)
	h.reply(c, v, err)
}

// POST /api/sessions/:id/upload?mode=simulate|import&title=...
// The move list is read from a multipart "file" field or the raw body.
func (h *SessionHandler) Upload(c *gin.Context) {
	var body io.Reader = c.Request.Body
	title := c.Query("title")
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "malformed_upload", err)
			return
		}
		f, err := fh.Open()
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "malformed_upload", err)
			return
		}
		defer f.Close()
		body = f
		if title == "" {
			title = strings.TrimSuffix(fh.Filename, ".json")
		}
	}
	v, err := h.guide.Upload(c.Request.Context(), c.Param("id"), body, guide.UploadMode(c.Query("mode")), title)
	h.reply(c, v, err)
}

// GET /api/sessions/:id/board.png?board=playback|match
func (h *SessionHandler) BoardPNG(c *gin.Context) {
	which := guide.BoardPlayback
	if c.Query("board") == string(guide.BoardMatch) {
		which = guide.BoardMatch
	}
	img, err := h.guide.BoardPNG(c.Request.Context(), c.Param("id"), which)
	if err != nil {
		h.respond(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", img)
}
