package chat

import "context"

// Exchange is the handle of one submitted message. The user turn is already
// in the transcript when Submit returns; the reply arrives later.
type Exchange struct {
	User Turn

	done  chan struct{}
	reply Turn
	err   error
}

func newExchange(user Turn) *Exchange {
	return &Exchange{User: user, done: make(chan struct{})}
}

func (e *Exchange) finish(reply Turn, err error) {
	e.reply = reply
	e.err = err
	close(e.done)
}

// Done is closed once the request resolved.
func (e *Exchange) Done() <-chan struct{} { return e.done }

// Wait blocks until the exchange resolves or ctx ends.
func (e *Exchange) Wait(ctx context.Context) (Turn, error) {
	select {
	case <-e.done:
		return e.reply, e.err
	case <-ctx.Done():
		return Turn{}, ctx.Err()
	}
}
