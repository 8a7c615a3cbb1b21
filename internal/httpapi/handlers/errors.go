package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/park285/chess-audio-guide/internal/archive"
	"github.com/park285/chess-audio-guide/internal/catalog"
	"github.com/park285/chess-audio-guide/internal/guide"
	"github.com/park285/chess-audio-guide/internal/httpapi/response"
	"github.com/park285/chess-audio-guide/internal/msgcat"
	"github.com/park285/chess-audio-guide/internal/playback"
	"github.com/park285/chess-audio-guide/internal/rules"
	"github.com/park285/chess-audio-guide/internal/upload"
)

var errorTable = []struct {
	target error
	status int
	code   string
}{
	{guide.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
	{catalog.ErrStudyNotFound, http.StatusNotFound, "study_not_found"},
	{archive.ErrMatchNotFound, http.StatusNotFound, "match_not_found"},
	{rules.ErrInvalidMove, http.StatusUnprocessableEntity, "invalid_move"},
	{upload.ErrMalformedUpload, http.StatusBadRequest, "malformed_upload"},
	{playback.ErrInvalidVolume, http.StatusBadRequest, "invalid_volume"},
	{guide.ErrUnknownMode, http.StatusBadRequest, "invalid_mode"},
	{playback.ErrAtStart, http.StatusConflict, "at_start"},
	{playback.ErrEmptySequence, http.StatusConflict, "no_sequence"},
	{guide.ErrNothingRecorded, http.StatusConflict, "nothing_recorded"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
}

// classify maps a service error to an HTTP status and error code.
func classify(err error) (int, string) {
	for _, e := range errorTable {
		if errors.Is(err, e.target) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

type errorResponder struct {
	messages *msgcat.Catalog
}

func (r errorResponder) respond(c *gin.Context, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		response.RespondError(c, status, code, err)
		return
	}
	msg := r.messages.Text("errors."+code, map[string]any{"Detail": err.Error()}, err.Error())
	response.RespondMessage(c, status, code, msg)
}
