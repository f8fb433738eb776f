package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"

	"github.com/egguy/goflot"
	"nhooyr.io/websocket"
)

// Config holds the configuration for the WS reader
type Config struct {
	ServerURL string
	Output    io.Writer
	Logger    *slog.Logger
}

// WSReader follows a goflot live chart and prints each snapshot's series
// payload to the output, one JSON document per line.
type WSReader struct {
	config Config
}

func NewWSReader(config Config) *WSReader {
	return &WSReader{config: config}
}

// Connect establishes the websocket connection and processes messages until
// the stream ends.
func (w *WSReader) Connect() error {
	u, err := url.Parse(w.config.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	w.config.Logger.Info("Connecting to websocket", "url", u.String())

	ctx := context.Background()
	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	for {
		_, messageData, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				w.config.Logger.Info("Connection closed normally")
				return nil
			}
			w.config.Logger.Error("Error reading message", "error", err)
			return err
		}

		if err := w.processMessage(messageData); err != nil {
			if err == io.EOF {
				w.config.Logger.Info("Stream ended")
				return nil
			}
			w.config.Logger.Error("Error processing message", "error", err)
		}
	}
}

func (w *WSReader) processMessage(messageData []byte) error {
	payload, err := goflot.DecodeMessage(messageData)
	if err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}

	switch msg := payload.(type) {
	case goflot.ChartUpdate:
		fmt.Fprintln(w.config.Output, string(msg.Series))

	case goflot.StreamEndMessage:
		if msg.Error {
			w.config.Logger.Error("Stream ended with error", "message", msg.Msg)
		} else {
			w.config.Logger.Info("Stream ended successfully", "message", msg.Msg)
		}
		return io.EOF // Signal end of stream

	default:
		w.config.Logger.Warn("Unknown message payload", "type", fmt.Sprintf("%T", payload))
	}

	return nil
}

func main() {
	var serverURL = flag.String("url", "http://localhost:5274", "URL of the goflot server")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	config := Config{
		ServerURL: *serverURL,
		Output:    os.Stdout,
		Logger:    logger,
	}

	reader := NewWSReader(config)
	if err := reader.Connect(); err != nil {
		config.Logger.Error("Failed to connect", "error", err)
		os.Exit(1)
	}
}
