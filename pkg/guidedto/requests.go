package guidedto

type LoadStudyRequest struct {
	StudyID string `json:"study_id" binding:"required"`
}

type VolumeRequest struct {
	Volume *float64 `json:"volume" binding:"required"`
}

type EnterMoveRequest struct {
	Move    string `json:"move" binding:"required"`
	Comment string `json:"comment"`
}

type ArchiveRequest struct {
	// FromPlayback archives the match recorded while simulating an upload.
	FromPlayback bool `json:"from_playback"`
}

type EnterMoveResponse struct {
	Move  MatchMove    `json:"move"`
	State SessionState `json:"state"`
}
