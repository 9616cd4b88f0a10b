package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

type options struct {
	url        string
	token      string
	sessionID  string
	file       string
	chunkBytes int
	interval   time.Duration
	base64     bool
	wait       time.Duration
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "relayclient",
		Short: "Stream an audio file to the transcription relay and print every message",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "ws://localhost:8080/ws/transcribe", "relay WebSocket URL")
	cmd.Flags().StringVar(&opts.token, "token", "", "bearer token (see 'ther-assist token')")
	cmd.Flags().StringVar(&opts.sessionID, "session", "", "session id to request, empty for a generated one")
	cmd.Flags().StringVar(&opts.file, "file", "", "audio file to stream (WEBM/Opus or any auto-detected encoding)")
	cmd.Flags().IntVar(&opts.chunkBytes, "chunk-bytes", 1600, "bytes per chunk")
	cmd.Flags().DurationVar(&opts.interval, "interval", 100*time.Millisecond, "delay between chunks")
	cmd.Flags().BoolVar(&opts.base64, "base64", false, "send chunks as base64 JSON audio messages instead of binary frames")
	cmd.Flags().DurationVar(&opts.wait, "wait", 5*time.Second, "how long to wait for the relay to close after stop")
	cmd.MarkFlagRequired("file")

	return cmd
}

func run(out io.Writer, opts options) error {
	audio, err := os.Open(opts.file)
	if err != nil {
		return fmt.Errorf("failed to open audio file: %w", err)
	}
	defer audio.Close()

	header := http.Header{}
	if opts.token != "" {
		header.Set("Authorization", "Bearer "+opts.token)
	}

	fmt.Fprintf(out, "Connecting to: %s\n", opts.url)
	conn, resp, err := websocket.DefaultDialer.Dial(opts.url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connection failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	handshake := map[string]any{}
	if opts.sessionID != "" {
		handshake["session_id"] = opts.sessionID
	}
	if err := conn.WriteJSON(handshake); err != nil {
		return fmt.Errorf("failed to send handshake: %w", err)
	}

	closed := make(chan error, 1)
	go func() {
		closed <- printMessages(out, conn)
	}()

	buf := make([]byte, opts.chunkBytes)
	sent := 0
	for {
		n, err := io.ReadFull(audio, buf)
		if n > 0 {
			if err := sendChunk(conn, buf[:n], opts.base64); err != nil {
				return fmt.Errorf("failed to send chunk %d: %w", sent, err)
			}
			sent++
			time.Sleep(opts.interval)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read audio: %w", err)
		}
	}

	fmt.Fprintf(out, "Sent %d chunks, stopping\n", sent)
	if err := conn.WriteJSON(map[string]string{"type": "stop"}); err != nil {
		return fmt.Errorf("failed to send stop: %w", err)
	}

	select {
	case err := <-closed:
		return err
	case <-time.After(opts.wait):
		return fmt.Errorf("relay did not close within %s", opts.wait)
	}
}

func sendChunk(conn *websocket.Conn, chunk []byte, asBase64 bool) error {
	if !asBase64 {
		return conn.WriteMessage(websocket.BinaryMessage, chunk)
	}
	return conn.WriteJSON(map[string]string{
		"type": "audio",
		"data": base64.StdEncoding.EncodeToString(chunk),
	})
}

func printMessages(out io.Writer, conn *websocket.Conn) error {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				fmt.Fprintln(out, "Connection closed by relay")
				return nil
			}
			return err
		}
		fmt.Fprintln(out, string(message))
	}
}
