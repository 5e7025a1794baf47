// Package telnet implements the line-oriented exchange with the instrument:
// dial, send one command, read one response line.
package telnet

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ravoegtlin/molbox-tester/internal/errors"
	"github.com/ravoegtlin/molbox-tester/internal/logger"
)

// lineTerminator is appended to every outgoing command. The instrument
// answers each command with a single response line.
const lineTerminator = "\r\n"

var errFactory = errors.New()

// Client is a single connection to the instrument. It is not safe for
// concurrent use; the polling loop owns it exclusively.
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	id      string
	addr    string
	timeout time.Duration
}

// Dial opens a TCP connection to host:port. The attempt is bounded by
// timeout and can be cut short by cancelling ctx.
func Dial(ctx context.Context, host string, port int, timeout time.Duration) (*Client, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrConnect, err)
	}

	c := &Client{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		id:      uuid.NewString(),
		addr:    addr,
		timeout: timeout,
	}
	logger.Debug().Str("conn_id", c.id).Msgf("Opened connection to %s", c.addr)

	return c, nil
}

// Addr returns the host:port this client was dialed against.
func (c *Client) Addr() string {
	return c.addr
}

// Send writes the command followed by the line terminator. Writes are not
// separately time-bounded; a command is a handful of bytes and either fits
// the socket buffer or the connection is already dead.
func (c *Client) Send(command string) error {
	n, err := c.conn.Write([]byte(command + lineTerminator))
	if err != nil {
		return errFactory.Wrap(errors.ErrWrite, err)
	}
	logger.Debug().Str("conn_id", c.id).Msgf("Wrote %d bytes", n)

	return nil
}

// ReadLine waits for one response line, bounded by the configured timeout.
// Cancelling ctx interrupts the wait and surfaces the context's error.
// The response is returned with surrounding whitespace stripped.
func (c *Client) ReadLine(ctx context.Context) (string, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return "", errFactory.Wrap(errors.ErrRead, err)
	}

	// The callback captures the connection: its goroutine can still be
	// pending when Close nils c.conn. Registering it after the timeout
	// deadline lets an already-cancelled context take effect immediately.
	conn := c.conn
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	line, err := c.reader.ReadString('\n')
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if IsTimeout(err) {
			return "", errFactory.Wrap(errors.ErrReadTimeout, err)
		}

		return "", errFactory.Wrap(errors.ErrRead, err)
	}

	return strings.TrimSpace(line), nil
}

// Close tears down the connection. Safe to call more than once.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	logger.Debug().Str("conn_id", c.id).Msg("Closed connection")

	if err != nil {
		return errFactory.Wrap(errors.ErrDisconnect, err)
	}

	return nil
}

// IsTimeout reports whether err stems from an expired I/O deadline.
func IsTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
