package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mikey-austin/homewatch/internal/core"
	"github.com/mikey-austin/homewatch/pkg/hw"
)

func ctlCommand() *cobra.Command {
	var (
		addr string
		wait time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ctl COMMAND [ARG...]",
		Short: "Send one control command to a running player",
		Example: "  homewatch ctl PAUS\n" +
			"  homewatch ctl SEEK 90000 --wait 2s",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fromContext(cmd)
			command, err := hw.ParseCommand(strings.Join(args, " "))
			if err != nil {
				return core.WrapError(core.ExitUsage, "command", err)
			}
			if addr == "" {
				addr = app.cfg.Server.Listen
			}
			endpoint, err := socketURL(addr)
			if err != nil {
				return core.WrapError(core.ExitUsage, "address", err)
			}
			result, err := sendCommand(cmd.Context(), endpoint, command.String(), wait)
			if err != nil {
				return err
			}
			return app.printer.Print(result)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "player address (default server.listen)")
	cmd.Flags().DurationVarP(&wait, "wait", "w", time.Second, "how long to collect broadcasts")

	return cmd
}

// socketURL maps a listen address onto the control socket endpoint.
func socketURL(addr string) (string, error) {
	if strings.Contains(addr, "://") {
		u, err := url.Parse(addr)
		if err != nil {
			return "", err
		}
		switch u.Scheme {
		case "http":
			u.Scheme = "ws"
		case "https":
			u.Scheme = "wss"
		}
		u.Path = "/ws"
		return u.String(), nil
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "ws://" + net.JoinHostPort(host, port) + "/ws", nil
}

// sendCommand sends text and collects broadcasts until wait elapses or the
// server closes the socket.
func sendCommand(ctx context.Context, endpoint string, text string, wait time.Duration) (core.CtlResult, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	ws, _, err := websocket.DefaultDialer.DialContext(dialCtx, endpoint, nil)
	if err != nil {
		return core.CtlResult{}, fmt.Errorf("connect %s: %w", endpoint, err)
	}
	defer ws.Close()

	if err := ws.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return core.CtlResult{}, fmt.Errorf("send: %w", err)
	}
	result := core.CtlResult{Sent: text, Received: []string{}}
	_ = ws.SetReadDeadline(time.Now().Add(wait))
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			var netErr net.Error
			closed := websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
			if closed || (errors.As(err, &netErr) && netErr.Timeout()) {
				break
			}
			return result, fmt.Errorf("receive: %w", err)
		}
		result.Received = append(result.Received, string(data))
	}
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return result, nil
}
