package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"prologue/internal/pipeline"
	"prologue/internal/ui"
)

type outcome[T any] struct {
	result T
	err    error
}

// runWithUI runs work in the background while a progress view consumes its
// events. The view exits once work returns and the event channel is closed.
func runWithUI[T any](ctx context.Context, title string, files []string, work func(context.Context, pipeline.ProgressSink) (T, error)) (T, error) {
	events := make(chan pipeline.Event, 256)
	outcomeCh := make(chan outcome[T], 1)

	go func() {
		res, err := work(ctx, pipeline.ChannelSink{Ch: events})
		outcomeCh <- outcome[T]{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		// drain events so the worker never blocks on the channel
		go func() {
			for range events {
			}
		}()
	}
	out := <-outcomeCh
	if uiErr != nil {
		return out.result, uiErr
	}
	return out.result, out.err
}
