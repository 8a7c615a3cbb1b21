package guidepresenter

import (
	"github.com/park285/chess-audio-guide/internal/domain"
	"github.com/park285/chess-audio-guide/internal/guide"
	"github.com/park285/chess-audio-guide/internal/playback"
	"github.com/park285/chess-audio-guide/pkg/guidedto"
)

func ToDTOState(v guide.View) guidedto.SessionState {
	out := guidedto.SessionState{
		SessionID: v.SessionID,
		StudyID:   v.StudyID,
		FEN:       v.Playback.FEN,
		Turn:      v.Turn,
		Progress:  v.Progress,
		Playback:  toDTOPlayback(v.Playback),
		Match:     ToDTOMatch(v.Recorded),
		Listeners: v.Listeners,
	}
	if v.Opening.Code != "" {
		out.Opening = &guidedto.Opening{Code: v.Opening.Code, Title: v.Opening.Title}
	}
	if v.Simulated != nil {
		m := ToDTOMatch(*v.Simulated)
		out.Simulated = &m
	}
	return out
}

func toDTOPlayback(st playback.State) guidedto.Playback {
	out := guidedto.Playback{
		SequenceID:       st.SequenceID,
		Title:            st.Title,
		Kind:             string(st.Kind),
		CurrentMoveIndex: st.Index,
		TotalMoves:       st.Total,
		IsPlaying:        st.Playing,
		Volume:           st.Volume,
		Narration:        st.Narration,
		AtStart:          st.AtStart,
		AtEnd:            st.AtEnd,
	}
	if st.Current != nil {
		out.Current = &guidedto.Step{
			Number:     st.Current.Number,
			Notation:   st.Current.Notation,
			Commentary: st.Current.Commentary,
			Plies:      append([]string(nil), st.Current.Plies...),
		}
	}
	return out
}

func ToDTOMatch(m domain.Match) guidedto.Match {
	out := guidedto.Match{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		Result:    m.Result,
		Moves:     make([]guidedto.MatchMove, 0, len(m.Moves)),
	}
	for _, mv := range m.Moves {
		out.Moves = append(out.Moves, ToDTOMatchMove(mv))
	}
	return out
}

func ToDTOMatchMove(mv domain.MatchMove) guidedto.MatchMove {
	return guidedto.MatchMove{
		Number:   mv.Number,
		Notation: mv.Notation,
		Comment:  mv.Comment,
		SAN:      append([]string(nil), mv.SAN...),
		UCI:      append([]string(nil), mv.Plies...),
	}
}

func ToDTOArchived(m *domain.ArchivedMatch) *guidedto.ArchivedMatch {
	if m == nil {
		return nil
	}
	return &guidedto.ArchivedMatch{
		ID:         m.ID,
		SessionID:  m.SessionID,
		Source:     m.Source,
		Title:      m.Title,
		Result:     m.Result,
		MovesSAN:   append([]string(nil), m.MovesSAN...),
		MovesUCI:   append([]string(nil), m.MovesUCI...),
		PGN:        m.PGN,
		CreatedAt:  m.CreatedAt,
		ArchivedAt: m.ArchivedAt,
	}
}

func ToDTOStudySummary(st domain.Study) guidedto.StudySummary {
	return guidedto.StudySummary{
		ID:          st.ID,
		Title:       st.Title,
		Description: st.Description,
		Moves:       len(st.Moves),
	}
}

func ToDTOStudy(st domain.Study) guidedto.Study {
	out := guidedto.Study{
		StudySummary: ToDTOStudySummary(st),
		StartFEN:     st.StartFEN,
		Steps:        make([]guidedto.StudyMove, 0, len(st.Moves)),
	}
	for _, mv := range st.Moves {
		out.Steps = append(out.Steps, guidedto.StudyMove{Move: mv.Spec, Notation: mv.Notation, Commentary: mv.Commentary})
	}
	return out
}
