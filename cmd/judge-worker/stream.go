package main

import (
	"sync"

	"judgeengine/internal/model"
)

// progressFrame is one line of a status/stream websocket connection: either
// a completed test's RunResult, or the submission's final Overall result
// once grading finishes.
type progressFrame struct {
	Index  int              `json:"index"`
	Result model.RunResult  `json:"result"`
	Done   bool             `json:"done"`
	Final  *model.RunResult `json:"final,omitempty"`
}

// progressBroker fans out a submission's per-test progress frames to any
// websocket client subscribed to that submission ID while grading is still
// in flight. A submission with no subscriber just drops its frames on the
// floor rather than blocking the grading goroutine.
type progressBroker struct {
	mu   sync.Mutex
	subs map[string][]chan progressFrame
}

func newProgressBroker() *progressBroker {
	return &progressBroker{subs: make(map[string][]chan progressFrame)}
}

// subscribe registers a buffered channel for submissionID and returns it
// along with an unsubscribe function the caller must invoke when done
// reading (typically when the websocket connection closes).
func (b *progressBroker) subscribe(submissionID string) (<-chan progressFrame, func()) {
	ch := make(chan progressFrame, 32)
	b.mu.Lock()
	b.subs[submissionID] = append(b.subs[submissionID], ch)
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		chans := b.subs[submissionID]
		for i, c := range chans {
			if c == ch {
				b.subs[submissionID] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
		if len(b.subs[submissionID]) == 0 {
			delete(b.subs, submissionID)
		}
		close(ch)
	}
	return ch, unsubscribe
}

// publish delivers frame to every current subscriber of submissionID,
// non-blockingly: a slow or absent reader never stalls grading.
func (b *progressBroker) publish(submissionID string, frame progressFrame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[submissionID] {
		select {
		case ch <- frame:
		default:
		}
	}
}
