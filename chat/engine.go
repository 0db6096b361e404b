// Package chat drives the submit-and-poll lifecycle of one user message
// against the remote task queue.
package chat

import (
	"context"
	"sync"
	"time"

	"aigent-client/config"
	apperrors "aigent-client/errors"
	"aigent-client/web/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome is the terminal state of one submitted message.
type Outcome string

const (
	OutcomeDone     Outcome = "done"
	OutcomeFailed   Outcome = "failed"
	OutcomeTimedOut Outcome = "timed_out"
	OutcomeCanceled Outcome = "canceled"
)

// TaskAPI is the slice of the API client the engine needs.
type TaskAPI interface {
	SendMessage(ctx context.Context, message string) (types.TaskHandle, error)
	TaskStatus(ctx context.Context, taskID string) (types.TaskStatus, error)
}

// EventSink receives user-visible effects of a submission. The submission
// id tags every event so concurrent submissions cannot interleave their
// indicators. Typing(id, true) is emitted once per submission and
// Typing(id, false) exactly once, on the terminal transition.
type EventSink interface {
	Typing(submissionID string, on bool)
	AigentMessage(submissionID, content string)
	Notice(submissionID, status, text string)
}

// User-facing texts for the failure taxonomy. Kept distinct so a malformed
// response, a server failure and a client timeout read differently.
const (
	textUnclearAnswer  = "The Aigent responded, but the answer was unclear. Please try again."
	textGenericFailure = "The Aigent failed to process your message. Please try again."
	textTimeout        = "The Aigent is taking too long to respond. Giving up for now - please try again later."
	textServerRetry    = "The Aigent hit a snag and is retrying internally. Still waiting..."
	textMalformed      = "The server returned an unexpected response. The client and server may be incompatible."
	textSessionExpired = "Your session has expired. Please log in again."
	textNetwork        = "Could not reach the server. Check your connection and try again."
)

// Engine runs the SUBMITTING -> POLLING -> terminal state machine. Each
// poll is armed only after the previous response was processed, so slow
// responses space polls out instead of overlapping them.
type Engine struct {
	api          TaskAPI
	pollInterval time.Duration
	maxAttempts  int
	logger       *zap.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewEngine(api TaskAPI, cfg *config.Config, logger *zap.Logger) *Engine {
	return &Engine{
		api:          api,
		pollInterval: cfg.PollInterval,
		maxAttempts:  cfg.PollMaxAttempts,
		logger:       logger,
		cancels:      make(map[string]context.CancelFunc),
	}
}

// Submit runs the full lifecycle of one user message and blocks until a
// terminal state. All user-visible output goes through the sink; the
// returned outcome is for the caller's bookkeeping.
func (e *Engine) Submit(ctx context.Context, text string, sink EventSink) Outcome {
	submissionID := uuid.NewString()

	ctx, cancel := context.WithCancel(ctx)
	e.track(submissionID, cancel)
	defer e.untrack(submissionID)

	sink.Typing(submissionID, true)
	var clearOnce sync.Once
	clearTyping := func() {
		clearOnce.Do(func() { sink.Typing(submissionID, false) })
	}
	defer clearTyping()

	handle, err := e.api.SendMessage(ctx, text)
	if err != nil {
		e.logger.Warn("Message submission failed", zap.Error(err))
		sink.Notice(submissionID, types.StatusError, failureText(err))
		return OutcomeFailed
	}
	e.logger.Debug("Task dispatched",
		zap.String("task_id", handle.TaskID),
		zap.String("submission_id", submissionID))

	return e.poll(ctx, submissionID, handle.TaskID, sink)
}

// poll is the POLLING state: a bounded chain of deferred status checks.
// The retry budget is shared across the whole chain and decremented once
// per non-terminal response.
func (e *Engine) poll(ctx context.Context, submissionID, taskID string, sink EventSink) Outcome {
	attempts := e.maxAttempts
	timer := time.NewTimer(e.pollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Debug("Poll chain canceled", zap.String("task_id", taskID))
			return OutcomeCanceled
		case <-timer.C:
		}

		status, err := e.api.TaskStatus(ctx, taskID)
		if err != nil {
			// A poll-level error ends the chain; polling past a failed
			// poll would hide a broken session or server.
			if ctx.Err() != nil {
				return OutcomeCanceled
			}
			e.logger.Warn("Task status poll failed", zap.String("task_id", taskID), zap.Error(err))
			sink.Notice(submissionID, types.StatusError, failureText(err))
			return OutcomeFailed
		}

		switch status.Status {
		case types.TaskSuccess:
			if status.Result == nil || status.Result.AnswerToUser == "" {
				e.logger.Warn("Task succeeded without usable result", zap.String("task_id", taskID))
				sink.Notice(submissionID, types.StatusError, textUnclearAnswer)
				return OutcomeDone
			}
			sink.AigentMessage(submissionID, status.Result.AnswerToUser)
			return OutcomeDone

		case types.TaskFailure:
			text := status.ErrorMessage
			if text == "" {
				text = textGenericFailure
			}
			sink.Notice(submissionID, types.StatusError, text)
			return OutcomeFailed

		case types.TaskPending, types.TaskStarted:
			attempts--

		case types.TaskRetry:
			// The server signaled an internal retry, distinct from this
			// client's own poll budget. One notice per occurrence.
			attempts--
			sink.Notice(submissionID, types.StatusInfo, textServerRetry)

		default:
			e.logger.Error("Unknown task status", zap.String("task_id", taskID), zap.String("status", status.Status))
			sink.Notice(submissionID, types.StatusError, "Received an unknown task status: "+status.Status)
			return OutcomeFailed
		}

		if attempts <= 0 {
			sink.Notice(submissionID, types.StatusError, textTimeout)
			return OutcomeTimedOut
		}
		timer.Reset(e.pollInterval)
	}
}

// Cancel stops the poll chain of one submission, if still running.
func (e *Engine) Cancel(submissionID string) {
	e.mu.Lock()
	cancel, ok := e.cancels[submissionID]
	e.mu.Unlock()
	if ok {
		cancel()
	}
}

// CancelAll stops every in-flight poll chain, e.g. on shutdown.
func (e *Engine) CancelAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, cancel := range e.cancels {
		cancel()
		delete(e.cancels, id)
	}
}

func (e *Engine) track(submissionID string, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancels[submissionID] = cancel
}

func (e *Engine) untrack(submissionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cancel, ok := e.cancels[submissionID]; ok {
		cancel()
		delete(e.cancels, submissionID)
	}
}

// failureText maps an operation error to its user-facing message.
func failureText(err error) string {
	switch {
	case apperrors.IsAuthExpired(err):
		return textSessionExpired
	case apperrors.IsProtocol(err):
		return textMalformed
	case apperrors.IsTimeout(err):
		return textTimeout
	case apperrors.IsNetwork(err):
		return textNetwork
	}
	if apiErr, ok := apperrors.AsAPIError(err); ok {
		return apiErr.Error()
	}
	return textGenericFailure
}
