// Package poller implements the connect/send/receive loop that drives the
// instrument session.
package poller

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ravoegtlin/molbox-tester/internal/config"
	"github.com/ravoegtlin/molbox-tester/internal/errors"
	"github.com/ravoegtlin/molbox-tester/internal/logger"
	"github.com/ravoegtlin/molbox-tester/internal/stats"
	"github.com/ravoegtlin/molbox-tester/internal/telnet"
)

// Connection is the transport the poller drives: one command out, one
// response line back.
type Connection interface {
	Send(command string) error
	ReadLine(ctx context.Context) (string, error)
	Close() error
}

// ConnectionFactory opens a fresh transport connection. The poller closes
// the previous connection before calling the factory again, so at most one
// connection is live at any time.
type ConnectionFactory func(ctx context.Context) (Connection, error)

// Poller owns a single connection and exchanges one command per tick over
// it, reconnecting on any failure. It is driven from a single goroutine.
type Poller struct {
	cfg     *config.Config
	factory ConnectionFactory
	sink    EventSink
	tracker *stats.Tracker

	conn  Connection
	state State

	// nextTick anchors the send cadence to the wall clock.
	nextTick time.Time
}

// New builds a Poller over the given connection factory. The sink receives
// the event stream; the tracker accumulates session counters.
func New(cfg *config.Config, factory ConnectionFactory, sink EventSink, tracker *stats.Tracker) *Poller {
	return &Poller{
		cfg:     cfg,
		factory: factory,
		sink:    sink,
		tracker: tracker,
		state:   StateDisconnected,
	}
}

// Dialer returns the production ConnectionFactory: a TCP dial to the
// configured host and port, bounded by the configured timeout.
func Dialer(cfg *config.Config) ConnectionFactory {
	return func(ctx context.Context) (Connection, error) {
		client, err := telnet.Dial(ctx, cfg.Host, cfg.Port, cfg.Timeout)
		if err != nil {
			return nil, err
		}

		return client, nil
	}
}

// Run drives the loop until ctx is cancelled. Failures never end the loop;
// every failure path returns to a fresh connect attempt. Any open connection
// is closed before Run returns, on every exit path.
func (p *Poller) Run(ctx context.Context) {
	defer p.disconnect()

	for ctx.Err() == nil {
		if p.conn == nil {
			if !p.connect(ctx) {
				if ctx.Err() != nil {
					return
				}
				logger.Warn().Msgf("Retrying connection in %s seconds...", config.Seconds(p.cfg.Interval))
				if !p.backoff(ctx) {
					return
				}
				continue
			}
			// A fresh connection restarts the cadence with an immediate send.
			p.nextTick = time.Now()
		}

		if !p.sleepUntil(ctx, p.nextTick) {
			return
		}
		// The next tick is measured from this send attempt's start. An
		// overdue tick fires immediately, without catching up missed ones.
		p.nextTick = time.Now().Add(p.cfg.Interval)

		if p.exchange(ctx) {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		logger.Warn().Msg("Reconnecting due to timeout or error...")
		p.disconnect()
		if !p.connect(ctx) {
			if ctx.Err() != nil {
				return
			}
			logger.Warn().Msgf("Reconnection failed, retrying in %s seconds...", config.Seconds(p.cfg.Interval))
			if !p.backoff(ctx) {
				return
			}
		}
	}
}

// connect asks the factory for a new connection and reports the outcome.
// Nothing is emitted when the attempt was cut short by cancellation.
func (p *Poller) connect(ctx context.Context) bool {
	logger.Info().Msgf("Connecting to %s:%d...", p.cfg.Host, p.cfg.Port)

	conn, err := p.factory(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.tracker.RecordFailure(errors.CodeOf(err))
		p.emitError(p.connectErrorMessage(err))

		return false
	}

	p.conn = conn
	p.setState(StateConnected)
	p.tracker.RecordConnect()
	p.emitInfo("Connected successfully")

	return true
}

// exchange performs one send and one bounded receive on the live connection.
func (p *Poller) exchange(ctx context.Context) bool {
	p.setState(StateSending)
	if err := p.conn.Send(p.cfg.Command); err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.tracker.RecordFailure(errors.CodeOf(err))
		p.emitError(fmt.Sprintf("Error sending command: %v", cause(err)))

		return false
	}
	p.tracker.RecordSent()
	p.emitInfo("Sent: " + p.cfg.Command)

	p.setState(StateAwaitingResponse)
	response, err := p.conn.ReadLine(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.tracker.RecordFailure(errors.CodeOf(err))
		p.emitError(readErrorMessage(err))

		return false
	}
	p.tracker.RecordReceived()
	p.emitInfo("Received: " + response)
	p.setState(StateConnected)

	return true
}

func (p *Poller) disconnect() {
	if p.conn == nil {
		return
	}

	if err := p.conn.Close(); err != nil {
		logger.ErrorWithCode(err).Msg("Error during disconnect")
	} else {
		logger.Info().Msgf("Disconnected from %s:%d", p.cfg.Host, p.cfg.Port)
	}
	p.conn = nil
	p.setState(StateDisconnected)
}

// backoff pauses one interval between connect attempts so a persistently
// unreachable host does not turn into a hot retry loop.
func (p *Poller) backoff(ctx context.Context) bool {
	p.setState(StateBackoff)
	if !p.sleepUntil(ctx, time.Now().Add(p.cfg.Interval)) {
		return false
	}
	p.setState(StateDisconnected)

	return true
}

// sleepUntil blocks until the deadline passes or ctx is cancelled. Returns
// false on cancellation. A deadline already in the past returns immediately.
func (p *Poller) sleepUntil(ctx context.Context, deadline time.Time) bool {
	wait := time.Until(deadline)
	if wait <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (p *Poller) setState(next State) {
	if p.state == next {
		return
	}
	logger.Debug().Str("from", p.state.String()).Str("to", next.String()).Msg("State transition")
	p.state = next
}

func (p *Poller) emitInfo(message string) {
	p.sink.Emit(Event{Time: time.Now(), Level: LevelInfo, Message: message})
}

func (p *Poller) emitError(message string) {
	p.sink.Emit(Event{Time: time.Now(), Level: LevelError, Message: message})
}

func (p *Poller) connectErrorMessage(err error) string {
	if telnet.IsTimeout(err) {
		return fmt.Sprintf("Connection timeout after %s seconds", config.Seconds(p.cfg.Timeout))
	}

	return fmt.Sprintf("Connection failed: %v", cause(err))
}

func readErrorMessage(err error) string {
	switch {
	case errors.CodeOf(err) == errors.ErrReadTimeout, telnet.IsTimeout(err):
		return "No response received within timeout"
	case errors.Is(err, io.EOF):
		return "Connection closed by remote host"
	default:
		return fmt.Sprintf("Error sending command: %v", cause(err))
	}
}

// cause unwraps one layer so operator-facing messages show the underlying
// I/O error rather than the classification wrapper.
func cause(err error) error {
	if unwrapped := errors.Unwrap(err); unwrapped != nil {
		return unwrapped
	}

	return err
}
