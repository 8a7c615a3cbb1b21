package guide

import (
	nchess "github.com/corentings/chess/v2"
	"github.com/park285/chess-audio-guide/internal/domain"
	"github.com/park285/chess-audio-guide/internal/playback"
	"github.com/park285/chess-audio-guide/internal/render"
	"github.com/park285/chess-audio-guide/internal/rules"
)

type Opening struct {
	Code  string
	Title string
}

// View is what a client needs to draw one session.
type View struct {
	SessionID string
	StudyID   string
	Playback  playback.State
	Progress  string
	Turn      string
	Opening   Opening
	// Recorded is the match entered by hand or imported.
	Recorded domain.Match
	// Simulated is the match recorded while simulating an upload.
	Simulated *domain.Match
	Listeners int
}

func (s *Service) viewLocked(sess *Session) View {
	st := sess.machine.State()
	v := View{
		SessionID: sess.id,
		StudyID:   sess.studyID,
		Playback:  st,
		Progress:  s.progressText(st),
		Turn:      sess.board.Turn(),
		Recorded:  sess.recorder.Match(),
	}
	v.Opening.Code, v.Opening.Title = sess.board.Opening()
	if m, ok := sess.machine.Match(); ok {
		v.Simulated = &m
	}
	if sess.hub != nil {
		v.Listeners = sess.hub.Clients()
	}
	return v
}

func (s *Service) progressText(st playback.State) string {
	if st.Total == 0 {
		return ""
	}
	data := map[string]any{"Current": st.Index + 1, "Total": st.Total}
	if st.Index < 0 {
		return s.messages.Text("board.progress_start", data, "")
	}
	return s.messages.Text("board.progress", data, "")
}

type renderJob struct {
	board *nchess.Board
	opts  render.Options
}

// renderJobLocked captures everything the renderer needs so drawing can
// happen off the loop.
func (s *Service) renderJobLocked(sess *Session, which BoardView) renderJob {
	b := sess.board
	var opts render.Options
	if which == BoardMatch {
		b = sess.recorder.Board()
		opts.Header = s.messages.Text("board.header", map[string]any{"Title": "Recorded match"}, "Recorded match")
	} else {
		st := sess.machine.State()
		if st.Title != "" {
			opts.Header = s.messages.Text("board.header", map[string]any{"Title": st.Title}, st.Title)
		}
		opts.Progress = s.progressText(st)
		if st.Current != nil {
			opts.Caption = st.Current.Commentary
		}
	}
	if opts.Caption == "" {
		opts.Caption = openingCaption(s, b)
	}
	if from, to, ok := b.LastMove(); ok {
		opts.LastMove = &render.LastMove{From: from, To: to}
	}
	// the board is copied so the renderer never races the loop
	board := *b.Position().Board()
	return renderJob{board: &board, opts: opts}
}

func openingCaption(s *Service, b *rules.Board) string {
	code, title := b.Opening()
	if code == "" {
		return ""
	}
	return s.messages.Text("board.opening", map[string]any{"Code": code, "Title": title}, code+" "+title)
}
