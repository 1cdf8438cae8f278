package policy

import (
	"context"
)

// Request carries one approval question from the orchestrator to whoever
// holds approval authority (an operator prompt, a ticketing hook).
type Request struct {
	TaskID     string
	Action     string
	Reason     string
	responseCh chan Response
}

// Response is the approver's verdict on a Request.
type Response struct {
	Granted bool
	Err     error
}

// ApproverFunc decides one approval request. It runs on the approval
// channel's handler goroutine, so it may block on operator input.
type ApproverFunc func(ctx context.Context, req Request) (bool, error)

// ApprovalChannel serializes approval requests from concurrently executing
// tasks through a single handler. Requests are buffered so a batch of
// tasks hitting EffectApprove at once does not deadlock the batch.
type ApprovalChannel struct {
	requestCh chan Request
	approver  ApproverFunc
	done      chan struct{}
}

// NewApprovalChannel creates an approval channel. bufferSize should be at
// least the orchestrator's concurrency limit.
func NewApprovalChannel(bufferSize int, approver ApproverFunc) *ApprovalChannel {
	return &ApprovalChannel{
		requestCh: make(chan Request, bufferSize),
		approver:  approver,
		done:      make(chan struct{}),
	}
}

// Start launches the request handler goroutine. It serves requests until
// the context is cancelled.
func (a *ApprovalChannel) Start(ctx context.Context) {
	go a.handleRequests(ctx)
}

func (a *ApprovalChannel) handleRequests(ctx context.Context) {
	defer close(a.done)

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-a.requestCh:
			granted, err := a.approver(ctx, req)

			select {
			case <-ctx.Done():
				req.responseCh <- Response{Err: ctx.Err()}
				return
			default:
				req.responseCh <- Response{Granted: granted, Err: err}
			}
		}
	}
}

// Ask submits an approval request and waits for the verdict. Cancellation
// is respected at both the send and receive stages.
func (a *ApprovalChannel) Ask(ctx context.Context, taskID, action, reason string) (bool, error) {
	responseCh := make(chan Response, 1)

	req := Request{
		TaskID:     taskID,
		Action:     action,
		Reason:     reason,
		responseCh: responseCh,
	}

	select {
	case a.requestCh <- req:
	case <-ctx.Done():
		return false, ctx.Err()
	}

	select {
	case resp := <-responseCh:
		if resp.Err != nil {
			return false, resp.Err
		}
		return resp.Granted, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Stop blocks until the handler goroutine has exited.
func (a *ApprovalChannel) Stop() {
	<-a.done
}
