package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielpatrickdp/adaptive-universe/internal/codec"
	"go.uber.org/zap"
)

// #region attempt

// attempt is one generation call and what came of it.
type attempt struct {
	n     int
	reply codec.Reply
	err   error
}

// #endregion

// #region should-retry

// shouldRetry decides whether another generation attempt is worthwhile.
// Cancellation of the caller's context and a missing generator are final.
func shouldRetry(ctx context.Context, a attempt, maxAttempts int) bool {
	if a.err == nil || a.n >= maxAttempts {
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(a.err, codec.ErrGeneratorUnavailable) {
		return false
	}
	return true
}

// #endregion

// #region generate

// generate calls the generator up to MaxAttempts times, parsing each reply as
// kind and passing it through check. It returns the first accepted reply, or
// the last error.
func (o *Orchestrator) generate(ctx context.Context, req codec.Request, check func(codec.Reply) error) (codec.Reply, error) {
	if o.gen == nil {
		return codec.Reply{}, codec.ErrGeneratorUnavailable
	}

	maxAttempts := o.config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var a attempt
	for n := 1; ; n++ {
		a = o.attemptOnce(ctx, req, check)
		a.n = n
		if a.err == nil {
			return a.reply, nil
		}
		if !shouldRetry(ctx, a, maxAttempts) {
			break
		}
		o.logger.Debug("retrying generation",
			zap.String("kind", string(req.Kind)),
			zap.Int("attempt", n),
			zap.Error(a.err))
	}
	return codec.Reply{}, a.err
}

func (o *Orchestrator) attemptOnce(ctx context.Context, req codec.Request, check func(codec.Reply) error) attempt {
	callCtx := ctx
	if o.config.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.config.GenerateTimeout)
		defer cancel()
	}

	payload, err := o.gen.Generate(callCtx, req)
	if err != nil {
		return attempt{err: fmt.Errorf("generate %s: %w", req.Kind, err)}
	}
	// A generator that ignores cancellation still loses the race.
	if err := ctx.Err(); err != nil {
		return attempt{err: err}
	}

	reply := codec.ParseReply(req.Kind, payload)
	if reply.Kind == codec.ReplyMalformed {
		return attempt{err: reply.Err}
	}
	if err := check(reply); err != nil {
		return attempt{err: err}
	}
	return attempt{reply: reply}
}

// #endregion
