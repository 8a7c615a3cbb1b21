package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/park285/chess-audio-guide/internal/adapter/guidepresenter"
	"github.com/park285/chess-audio-guide/internal/guide"
	"github.com/park285/chess-audio-guide/internal/httpapi/response"
	"github.com/park285/chess-audio-guide/internal/msgcat"
	"github.com/park285/chess-audio-guide/pkg/guidedto"
)

const defaultRecentLimit = 20

type MatchHandler struct {
	guide *guide.Service
	errorResponder
}

func NewMatchHandler(svc *guide.Service, messages *msgcat.Catalog) *MatchHandler {
	return &MatchHandler{guide: svc, errorResponder: errorResponder{messages: messages}}
}

// POST /api/sessions/:id/moves
func (h *MatchHandler) EnterMove(c *gin.Context) {
	var req guidedto.EnterMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	mv, v, err := h.guide.EnterMove(c.Request.Context(), c.Param("id"), req.Move, req.Comment)
	if err != nil {
		h.respond(c, err)
		return
	}
	response.RespondOK(c, guidedto.EnterMoveResponse{
		Move:  guidepresenter.ToDTOMatchMove(mv),
		State: guidepresenter.ToDTOState(v),
	})
}

// POST /api/sessions/:id/match/reset
func (h *MatchHandler) Reset(c *gin.Context) {
	v, err := h.guide.NewMatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"state": guidepresenter.ToDTOState(v)})
}

// POST /api/sessions/:id/match/archive
func (h *MatchHandler) Archive(c *gin.Context) {
	var req guidedto.ArchiveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	m, err := h.guide.ArchiveMatch(c.Request.Context(), c.Param("id"), req.FromPlayback)
	if err != nil {
		h.respond(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"match": guidepresenter.ToDTOArchived(m)})
}

// GET /api/sessions/:id/matches
func (h *MatchHandler) Recent(c *gin.Context) {
	limit := defaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.RespondMessage(c, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
			return
		}
		limit = n
	}
	list, err := h.guide.RecentMatches(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.respond(c, err)
		return
	}
	out := make([]*guidedto.ArchivedMatch, 0, len(list))
	for _, m := range list {
		out = append(out, guidepresenter.ToDTOArchived(m))
	}
	response.RespondOK(c, gin.H{"matches": out})
}

// GET /api/matches/:id
func (h *MatchHandler) Get(c *gin.Context) {
	m, err := h.guide.GetMatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respond(c, err)
		return
	}
	if c.Query("format") == "pgn" {
		c.Header("Content-Disposition", `attachment; filename="`+m.ID+`.pgn"`)
		c.Data(http.StatusOK, "application/x-chess-pgn", []byte(m.PGN))
		return
	}
	response.RespondOK(c, gin.H{"match": guidepresenter.ToDTOArchived(m)})
}
