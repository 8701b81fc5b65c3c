package tui

import (
	"context"

	tea "charm.land/bubbletea/v2"

	"github.com/lawbot0/lawbot/internal/pipeline"
)

// Each submitted turn carries a sequence number. Canceling a turn bumps
// the model's counter, so results from the abandoned turn arrive with a
// stale seq and are dropped by Update.
type askStartedMsg struct {
	seq      int
	resultCh <-chan askResult
	cancel   context.CancelFunc
}

type askDoneMsg struct {
	seq    int
	answer pipeline.Answer
}

type askErrorMsg struct {
	seq int
	err error
}

type askResult struct {
	answer pipeline.Answer
	err    error
}

// ask runs one pipeline turn off the event loop. The pipeline converts
// generation failures into visible KindError answers, so err here means
// cancellation or invalid input.
func (m *Model) ask(seq int, query string) tea.Cmd {
	return func() tea.Msg {
		resultCh := make(chan askResult, 1)
		ctx, cancel := context.WithTimeout(m.ctx, askTimeout)

		go func() {
			defer cancel()
			answer, err := m.pipeline.Ask(ctx, m.session, query)
			resultCh <- askResult{answer: answer, err: err}
		}()

		return askStartedMsg{seq: seq, resultCh: resultCh, cancel: cancel}
	}
}

// awaitAsk waits for the running turn to finish.
func awaitAsk(seq int, resultCh <-chan askResult) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-resultCh
		if !ok {
			return nil
		}
		if res.err != nil {
			return askErrorMsg{seq: seq, err: res.err}
		}
		return askDoneMsg{seq: seq, answer: res.answer}
	}
}
