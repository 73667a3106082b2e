package ai

import (
	"context"
	"io"
)

type chunk struct {
	text string
	err  error
}

type chunkStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	chunks chan chunk
}

// newChunkStream запускает продюсера в горутине и отдает фрагменты через Recv.
// Канал небуферизован: продюсер ждет, пока потребитель заберет текущий фрагмент.
func newChunkStream(ctx context.Context, run func(context.Context, func(string) error) error) TextStream {
	streamCtx, cancel := context.WithCancel(ctx)
	ch := make(chan chunk)

	send := func(text string) error {
		select {
		case ch <- chunk{text: text}:
			return nil
		case <-streamCtx.Done():
			return streamCtx.Err()
		}
	}

	go func() {
		defer close(ch)
		if err := run(streamCtx, send); err != nil {
			select {
			case ch <- chunk{err: err}:
			case <-streamCtx.Done():
			}
		}
	}()

	return &chunkStream{ctx: streamCtx, cancel: cancel, chunks: ch}
}

// Recv возвращает следующий фрагмент или io.EOF.
func (s *chunkStream) Recv() (string, error) {
	select {
	case <-s.ctx.Done():
		return "", s.ctx.Err()
	case c, ok := <-s.chunks:
		if !ok {
			return "", io.EOF
		}
		if c.err != nil {
			return "", c.err
		}
		return c.text, nil
	}
}

// Close прерывает продюсера.
func (s *chunkStream) Close() error {
	s.cancel()
	return nil
}
