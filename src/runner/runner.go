// Package runner processes a batch of competências one after the other on a
// single worker, writing one audit row per started item and asking the
// operator whether to go on after a partial or failed item.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sefip-robot/src/audit"
	"sefip-robot/src/batch"
	"sefip-robot/src/robot"
)

var ErrEmptyBatch = errors.New("nenhum dado encontrado no CSV")

const rule = "========================================"

// Plan builds the procedures for one item, in execution order.
type Plan func(item batch.Item) []robot.Procedure

// Confirmer asks the operator a yes/no question and blocks for the answer.
type Confirmer interface {
	Confirm(ctx context.Context, title, message string) (bool, error)
}

// ProgressFunc reports percent complete and a label for the current item.
type ProgressFunc func(percent float64, label string)

// Logger is the live event log.
type Logger interface {
	robot.Logger
	// Line writes a line without timestamp decoration (banners).
	Line(text string)
}

// History looks up earlier runs; it is optional.
type History interface {
	LastSuccess(period string) (end string, ok bool, err error)
}

// Runner drives items through the plan. NewSession must return a fresh
// session per item.
type Runner struct {
	Plan       Plan
	NewSession func() *robot.Session
	Audit      audit.Sink
	Confirm    Confirmer
	Progress   ProgressFunc
	Log        Logger
	History    History
	AuditPath  string
	Now        func() time.Time
}

// Summary counts item outcomes for a run.
type Summary struct {
	Total     int
	Attempted int
	Succeeded int
	Partial   int
	Failed    int
	Cancelled int
	// Stopped is set when the run ended before the last item.
	Stopped bool
}

// Run processes items in order. It returns a non-nil error only for
// conditions that abort the whole run: an empty batch, a broken
// installation (*robot.ConfigError) or context cancellation.
func (r *Runner) Run(ctx context.Context, items []batch.Item) (Summary, error) {
	sum := Summary{Total: len(items)}
	if len(items) == 0 {
		r.Log.Errorf("ERRO: Nenhum dado encontrado no CSV")
		return sum, ErrEmptyBatch
	}
	defer r.progress(0, "Aguardando...")

	r.Log.Line("=== Processamento em Lote Iniciado ===")
	r.Log.Line(fmt.Sprintf("Total de meses a processar: %d", len(items)))
	if r.AuditPath != "" {
		r.Log.Line("Log CSV: " + r.AuditPath)
	}
	r.Log.Line(rule)

	for i, item := range items {
		n := i + 1
		period := item.Period()
		start := r.now()

		r.Log.Line("")
		r.Log.Line(rule)
		r.Log.Line(fmt.Sprintf("PROCESSANDO %d/%d: %s - Valor: R$ %s", n, len(items), period, item.Amount))
		r.Log.Line("Início: " + start.Format(audit.TimeLayout))
		r.Log.Line(rule)
		r.progress(float64(n)/float64(len(items))*100, fmt.Sprintf("Processando %d/%d: %s", n, len(items), period))
		r.warnIfDone(period)

		outcome, abort := r.runItem(ctx, item)
		end := r.now()
		sum.Attempted++

		r.report(outcome, period, end)
		rec := audit.Record{Start: start, Period: period, Amount: item.Amount, End: end, Status: outcome.Status()}
		if err := r.Audit.Append(rec); err != nil {
			r.Log.Errorf("Erro ao registrar no log CSV: %v", err)
		}
		sum.count(outcome)

		if abort != nil {
			sum.Stopped = n < len(items)
			r.finish()
			return sum, abort
		}

		next := true
		switch outcome.Kind {
		case UserCancelled:
			next = false
		case PartialSkip:
			next = r.ask(ctx, "Etapa Pulada",
				fmt.Sprintf("Uma etapa foi pulada em %s.\n\nDeseja continuar para o próximo mês?", period))
		case Failed:
			next = r.ask(ctx, "Erro no Processamento",
				fmt.Sprintf("Erro ao processar %s:\n%s\n\nDeseja continuar com os próximos meses?", period, outcome.Reason))
		}
		if !next {
			sum.Stopped = n < len(items)
			if outcome.Kind != UserCancelled {
				r.Log.Line("")
				r.Log.Line("Processamento interrompido pelo usuário.")
			}
			break
		}
	}

	r.finish()
	return sum, nil
}

// runItem is the per-item failure boundary. abort is non-nil when the
// whole run has to stop regardless of the operator.
func (r *Runner) runItem(ctx context.Context, item batch.Item) (outcome ItemOutcome, abort error) {
	defer func() {
		if p := recover(); p != nil {
			outcome = failed(fmt.Sprintf("falha inesperada: %v", p))
			abort = nil
		}
	}()

	sess := r.NewSession()
	for _, proc := range r.Plan(item) {
		res, err := sess.Run(ctx, proc)
		if err != nil {
			switch {
			case errors.Is(err, robot.ErrCancelled):
				return ItemOutcome{Kind: UserCancelled}, nil
			case robot.IsConfigError(err):
				return failed(err.Error()), err
			case ctx.Err() != nil:
				return failed(err.Error()), ctx.Err()
			default:
				return failed(err.Error()), nil
			}
		}
		switch res.Status {
		case robot.ProcedureSkipped:
			return ItemOutcome{Kind: PartialSkip, Reason: fmt.Sprintf("usuário optou por pular: %s", res.Anchor)}, nil
		case robot.ProcedureCancelled:
			return ItemOutcome{Kind: UserCancelled}, nil
		}
	}
	return ItemOutcome{Kind: Success}, nil
}

func (r *Runner) report(o ItemOutcome, period string, end time.Time) {
	switch o.Kind {
	case Success:
		r.Log.Infof("✓ Mês %s PROCESSADO COM SUCESSO!", period)
	case PartialSkip:
		r.Log.Warnf("⚠ Mês %s PROCESSADO PARCIALMENTE (pulou etapa): %s", period, o.Reason)
	case UserCancelled:
		r.Log.Warnf("✖ Processamento CANCELADO pelo usuário")
	case Failed:
		r.Log.Errorf("✗ ERRO no mês %s: %s", period, o.Reason)
	}
	r.Log.Line("Fim: " + end.Format(audit.TimeLayout))
}

// ask returns false when the operator says no or the prompt cannot be shown.
func (r *Runner) ask(ctx context.Context, title, message string) bool {
	if r.Confirm == nil {
		return false
	}
	ok, err := r.Confirm.Confirm(ctx, title, message)
	if err != nil {
		r.Log.Errorf("Sem resposta do operador (%s): %v", title, err)
		return false
	}
	return ok
}

func (r *Runner) warnIfDone(period string) {
	if r.History == nil {
		return
	}
	end, ok, err := r.History.LastSuccess(period)
	if err != nil {
		r.Log.Warnf("Histórico indisponível: %v", err)
		return
	}
	if ok {
		r.Log.Warnf("Aviso: %s já foi processado com sucesso em %s", period, end)
	}
}

func (r *Runner) finish() {
	r.Log.Line("")
	r.Log.Line(rule)
	r.Log.Line("=== PROCESSAMENTO EM LOTE FINALIZADO ===")
	if r.AuditPath != "" {
		r.Log.Line("Log detalhado salvo em: " + r.AuditPath)
	}
	r.Log.Line(rule)
}

func (r *Runner) progress(percent float64, label string) {
	if r.Progress != nil {
		r.Progress(percent, label)
	}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (s *Summary) count(o ItemOutcome) {
	switch o.Kind {
	case Success:
		s.Succeeded++
	case PartialSkip:
		s.Partial++
	case Failed:
		s.Failed++
	case UserCancelled:
		s.Cancelled++
	}
}

// String is the one-line summary shown at the end of a run.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d mês(es) processado(s) de %d", s.Attempted, s.Total)
	fmt.Fprintf(&b, " (sucesso: %d, parcial: %d, erro: %d, cancelado: %d)", s.Succeeded, s.Partial, s.Failed, s.Cancelled)
	return b.String()
}
