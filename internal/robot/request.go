package robot

import (
	"context"
	"fmt"
)

// Request carries a command or mode change from another goroutine to the
// control loop. Exactly one of Command and Mode is set.
type Request struct {
	Command *Command
	Mode    Mode
	Reply   chan Response
}

// Response is the outcome of a Request.
type Response struct {
	Changed bool
	Err     error
}

// NewCommandRequest creates a request with a buffered reply channel.
func NewCommandRequest(cmd Command) Request {
	return Request{Command: &cmd, Reply: make(chan Response, 1)}
}

// NewModeRequest creates a request with a buffered reply channel.
func NewModeRequest(mode Mode) Request {
	return Request{Mode: mode, Reply: make(chan Response, 1)}
}

// Handle applies req on the calling goroutine and replies if a reply
// channel was given.
func (r *Robot) Handle(ctx context.Context, req Request) Response {
	var resp Response
	switch {
	case req.Command != nil:
		resp.Changed, resp.Err = r.Apply(*req.Command)
	case req.Mode != "":
		resp.Changed, resp.Err = r.SetMode(ctx, req.Mode)
	default:
		resp.Err = fmt.Errorf("empty request")
	}

	if resp.Err != nil {
		r.logger.Warnw("request rejected", "error", resp.Err)
	}
	if req.Reply != nil {
		req.Reply <- resp
	}
	return resp
}

// Submit sends req to requests and waits for the reply.
func Submit(ctx context.Context, requests chan<- Request, req Request) (Response, error) {
	select {
	case requests <- req:
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
	select {
	case resp := <-req.Reply:
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}
