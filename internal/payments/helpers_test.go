package payments

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"zapnest/internal/notifications"
	"zapnest/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

// fakeDispatcher records every message and returns a canned result.
type fakeDispatcher struct {
	mu     sync.Mutex
	result notifications.DispatchResult
	sent   []types.EmailMessage
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{result: notifications.DispatchResult{Attempted: true, Succeeded: true, MessageID: "em_1"}}
}

func failingDispatcher() *fakeDispatcher {
	return &fakeDispatcher{result: notifications.DispatchResult{Attempted: true, Err: errors.New("resend: 500")}}
}

func (f *fakeDispatcher) Dispatch(_ context.Context, msg types.EmailMessage) notifications.DispatchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.result
}

func (f *fakeDispatcher) messages() []types.EmailMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.EmailMessage(nil), f.sent...)
}

// spyRecorder counts outcomes by operation and result.
type spyRecorder struct {
	mu       sync.Mutex
	outcomes map[string]string
}

func newSpyRecorder() *spyRecorder { return &spyRecorder{outcomes: make(map[string]string)} }

func (s *spyRecorder) RecordOutcome(_ context.Context, op, result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[op] = result
}

func (s *spyRecorder) RecordEmailDispatch(context.Context, types.EmailTemplate, string) {}
func (s *spyRecorder) RecordExternalFailure(context.Context, string)                    {}

func (s *spyRecorder) outcome(op string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcomes[op]
}

// sequenceCodes returns the given referral codes in order.
func sequenceCodes(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}
