package speech

import (
	"context"

	"github.com/park285/chess-audio-guide/internal/narration"
	"github.com/park285/chess-audio-guide/internal/relay"
	"go.uber.org/zap"
)

// LogSink writes every utterance to the log.
type LogSink struct {
	Logger *zap.Logger
}

func (s LogSink) Say(_ context.Context, u narration.Utterance) error {
	if s.Logger == nil {
		return nil
	}
	s.Logger.Info("narration_say",
		zap.Uint64("utterance_id", u.ID),
		zap.String("text", u.Text),
		zap.Float64("volume", u.Volume),
	)
	return nil
}

// RelaySink posts every utterance to a chat room.
type RelaySink struct {
	Client *relay.Client
	Room   string
}

func (s RelaySink) Say(ctx context.Context, u narration.Utterance) error {
	return s.Client.SendText(ctx, s.Room, u.Text)
}
