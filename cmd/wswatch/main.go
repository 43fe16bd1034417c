// Command wswatch connects to the notification stream and prints every event it receives.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skillswap/internal/notifications"

	"github.com/gorilla/websocket"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rawURL := flag.String("url", "ws://localhost:8375/api/ws", "notification endpoint")
	token := flag.String("token", os.Getenv("SKILLSWAP_TOKEN"), "bearer token (defaults to $SKILLSWAP_TOKEN)")
	flag.Parse()

	if *token == "" {
		return fmt.Errorf("a token is required: pass -token or set SKILLSWAP_TOKEN")
	}

	endpoint, err := url.Parse(*rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	query := endpoint.Query()
	query.Set("token", *token)
	endpoint.RawQuery = query.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.Dial(endpoint.String(), nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %d)", *rawURL, err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", *rawURL, err)
	}
	defer func() { _ = conn.Close() }()

	done := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				done <- err
				return
			}
			var event notifications.Event
			if err := json.Unmarshal(data, &event); err != nil {
				log.Printf("undecodable frame: %s", data)
				continue
			}
			payload, _ := json.Marshal(event.Payload)
			fmt.Printf("%s  %-24s %s\n", event.SentAt.Format(time.RFC3339), event.Type, payload)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		return nil
	case err := <-done:
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil
		}
		return fmt.Errorf("read: %w", err)
	}
}
