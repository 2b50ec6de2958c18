// Package singleinstance keeps a second robot from driving the same mouse and
// keyboard. The resident owns a loopback TCP port; a newcomer asks it to come
// to the front and exits.
package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var ErrAlreadyRunning = errors.New("o robô já está em execução")

const (
	// PortEnvVar overrides DefaultPort.
	PortEnvVar  = "SEFIP_ROBOT_PORT"
	DefaultPort = 49560

	residentHost = "127.0.0.1"
	pingRequest  = "PING\n"
	pongResponse = "PONG\n"
	showRequest  = "SHOW\n"
	okResponse   = "OK\n"
)

// Port returns the configured port, clamped to [1024, 65535].
func Port() int {
	port := DefaultPort
	if v := os.Getenv(PortEnvVar); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			port = n
		}
	}
	return min(max(port, 1024), 65535)
}

func addr(port int) string { return net.JoinHostPort(residentHost, strconv.Itoa(port)) }

// Resident owns the port until Close.
type Resident struct {
	lis    net.Listener
	log    zerolog.Logger
	onShow func()
	wg     sync.WaitGroup
}

// Claim binds port (0 picks a free one). When a live resident already holds
// it, Claim asks that resident to show itself and returns ErrAlreadyRunning.
// onShow runs on the accept goroutine and may be nil.
func Claim(ctx context.Context, port int, log zerolog.Logger, onShow func()) (*Resident, error) {
	lis, err := net.Listen("tcp", addr(port))
	if err != nil {
		if Notify(ctx, port) == nil {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("failed to bind %s: %w", addr(port), err)
	}
	r := &Resident{lis: lis, log: log, onShow: onShow}
	log.Debug().Str("addr", lis.Addr().String()).Msg("singleinstance: listening")
	r.wg.Add(1)
	go r.acceptLoop()
	return r, nil
}

// Port returns the bound port.
func (r *Resident) Port() int { return r.lis.Addr().(*net.TCPAddr).Port }

func (r *Resident) acceptLoop() {
	defer r.wg.Done()
	for {
		c, err := r.lis.Accept()
		if err != nil {
			return
		}
		r.serve(c)
	}
}

func (r *Resident) serve(c net.Conn) {
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(3 * time.Second))
	line, _ := bufio.NewReader(c).ReadString('\n')
	switch line {
	case pingRequest:
		_, _ = c.Write([]byte(pongResponse))
	case showRequest:
		r.log.Info().Str("remote", c.RemoteAddr().String()).Msg("singleinstance: second instance asked to show window")
		_, _ = c.Write([]byte(okResponse))
		if r.onShow != nil {
			r.onShow()
		}
	default:
		r.log.Debug().Str("request", line).Msg("singleinstance: unknown request")
	}
}

// Close releases the port.
func (r *Resident) Close() error {
	err := r.lis.Close()
	r.wg.Wait()
	return err
}

// Ping reports whether a resident answers on port.
func Ping(ctx context.Context, port int) bool {
	return roundTrip(ctx, port, pingRequest, pongResponse) == nil
}

// Notify asks the resident on port to bring its window to the front.
func Notify(ctx context.Context, port int) error {
	return roundTrip(ctx, port, showRequest, okResponse)
}

func roundTrip(ctx context.Context, port int, request, want string) error {
	timeout := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			timeout = d
		}
	}
	conn, err := net.DialTimeout("tcp", addr(port), timeout)
	if err != nil {
		return err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	if _, err := conn.Write([]byte(request)); err != nil {
		return err
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return err
	}
	if resp != want {
		return fmt.Errorf("unexpected response %q", resp)
	}
	return nil
}
