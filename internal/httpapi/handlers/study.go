package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/park285/chess-audio-guide/internal/adapter/guidepresenter"
	"github.com/park285/chess-audio-guide/internal/guide"
	"github.com/park285/chess-audio-guide/internal/httpapi/response"
	"github.com/park285/chess-audio-guide/internal/msgcat"
	"github.com/park285/chess-audio-guide/pkg/guidedto"
)

type StudyHandler struct {
	guide *guide.Service
	errorResponder
}

func NewStudyHandler(svc *guide.Service, messages *msgcat.Catalog) *StudyHandler {
	return &StudyHandler{guide: svc, errorResponder: errorResponder{messages: messages}}
}

// GET /api/studies
func (h *StudyHandler) List(c *gin.Context) {
	studies := h.guide.Studies()
	out := make([]guidedto.StudySummary, 0, len(studies))
	for _, st := range studies {
		out = append(out, guidepresenter.ToDTOStudySummary(st))
	}
	response.RespondOK(c, gin.H{"studies": out})
}

// GET /api/studies/:id
func (h *StudyHandler) Get(c *gin.Context) {
	st, err := h.guide.Study(c.Param("id"))
	if err != nil {
		h.respond(c, err)
		return
	}
	response.RespondOK(c, gin.H{"study": guidepresenter.ToDTOStudy(st)})
}
