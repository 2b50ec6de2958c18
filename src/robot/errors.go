package robot

import (
	"errors"
	"fmt"
	"time"
)

// ErrCancelled is returned when the operator chose "cancel everything".
// It always accompanies a StepCancelled outcome.
var ErrCancelled = errors.New("processamento cancelado pelo usuário")

// ConfigError reports a broken installation: a template image is missing or
// an anchor is malformed. It aborts the whole run, not just the item.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("configuração inválida: %v", e.Err)
	}
	return fmt.Sprintf("arquivo de imagem não encontrado: %s", e.Path)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NotFoundError is returned when a non-recoverable anchor never appeared.
type NotFoundError struct {
	Anchor  string
	Timeout time.Duration
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("imagem não encontrada na tela: %s (após %s)", e.Anchor, e.Timeout)
}

// IsConfigError reports whether err is (or wraps) a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
