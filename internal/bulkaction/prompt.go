package bulkaction

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

type promptLine struct {
	text string
	err  error
}

// PromptConfirmer спрашивает подтверждение в терминале.
// Ввод читает одна горутина на весь срок жизни, поэтому буфер не теряется между вопросами,
// а отменённый вопрос не оставляет за собой висящего чтения.
type PromptConfirmer struct {
	in  *bufio.Reader
	out io.Writer

	once  sync.Once
	lines chan promptLine
}

func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan promptLine),
	}
}

func (p *PromptConfirmer) readLines() {
	defer close(p.lines)
	for {
		line, err := p.in.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				p.lines <- promptLine{err: err}
			} else if line != "" {
				p.lines <- promptLine{text: line}
			}
			return
		}
		p.lines <- promptLine{text: line}
	}
}

// Confirm печатает вопрос и ждёт ответа; согласие это y, yes, д или да.
// Строка, пришедшая после отмены, достаётся следующему вопросу.
func (p *PromptConfirmer) Confirm(ctx context.Context, prompt Prompt) (bool, error) {
	if _, err := fmt.Fprintf(p.out, "%s [y/N]: ", prompt.Message()); err != nil {
		return false, err
	}
	p.once.Do(func() { go p.readLines() })

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			return false, nil
		}
		if line.err != nil {
			return false, line.err
		}
		switch strings.ToLower(strings.TrimSpace(line.text)) {
		case "y", "yes", "д", "да":
			return true, nil
		}
		return false, nil
	}
}
