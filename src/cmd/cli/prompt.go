package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"sefip-robot/src/robot"
)

// prompter reads the operator's answers line by line.
type prompter struct {
	lines <-chan string
	out   io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return &prompter{lines: lines, out: out}
}

// readLine returns false at end of input or when ctx is done.
func (p *prompter) readLine(ctx context.Context) (string, bool) {
	select {
	case line, ok := <-p.lines:
		return strings.ToLower(strings.TrimSpace(line)), ok
	case <-ctx.Done():
		return "", false
	}
}

// decide maps t/p/c to a recovery choice. End of input cancels.
func (p *prompter) decide(ctx context.Context, anchor string) robot.RecoveryChoice {
	fmt.Fprintf(p.out, "\n⚠ Imagem não encontrada: %s\n", anchor)
	for {
		fmt.Fprint(p.out, "O que deseja fazer? [t] Tentar novamente  [p] Pular este passo  [c] Cancelar tudo: ")
		line, ok := p.readLine(ctx)
		if !ok {
			fmt.Fprintln(p.out)
			return robot.Cancel
		}
		switch line {
		case "t", "tentar":
			return robot.Retry
		case "p", "pular":
			return robot.Skip
		case "c", "cancelar":
			return robot.Cancel
		}
	}
}

// confirm reads s/n. End of input answers no.
func (p *prompter) confirm(ctx context.Context, title, body string) bool {
	fmt.Fprintf(p.out, "\n%s\n%s\n", title, body)
	for {
		fmt.Fprint(p.out, "[s/n]: ")
		line, ok := p.readLine(ctx)
		if !ok {
			fmt.Fprintln(p.out)
			return false
		}
		switch line {
		case "s", "sim":
			return true
		case "n", "nao", "não":
			return false
		}
	}
}
