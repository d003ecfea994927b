package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"time"
)

const pingTimeout = 300 * time.Millisecond

type tcpClient struct {
	ports Ports
}

func newTcpClient(ports Ports) Client { return &tcpClient{ports: ports} }

func (c *tcpClient) Send(ctx context.Context, action Action) (bool, string, error) {
	addr, ok := FindResident(ctx, c.ports)
	if !ok {
		return false, "", nil
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false, "", nil
	}
	defer conn.Close()
	text, err := exchange(ctx, conn, action)
	return true, text, err
}

// FindResident returns the address of the first port in range that answers PING.
func FindResident(ctx context.Context, ports Ports) (string, bool) {
	for port := ports.Start; port <= ports.End; port++ {
		if ctx.Err() != nil {
			return "", false
		}
		addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
		if ping(addr, pingTimeout) {
			return addr, true
		}
	}
	return "", false
}

func ping(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	if _, err := io.WriteString(conn, pingRequest); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}

// exchange writes the request line and reads "SUCCESS\n<text>" or
// "ERROR\n<msg>" until the resident closes the connection.
func exchange(ctx context.Context, conn net.Conn, action Action) (string, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	if _, err := io.WriteString(conn, action.String()+"\n"); err != nil {
		return "", err
	}
	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	body, _ := io.ReadAll(br)
	switch status {
	case "SUCCESS\n":
		return string(body), nil
	case "ERROR\n":
		return "", errors.New(string(body))
	default:
		return "", errors.New("unexpected resident response " + strconv.Quote(status))
	}
}
