package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// ============================================================================
// glitch-watch - monitor stream tail
// ============================================================================
// Connects to a running glitchd monitor websocket and prints the event
// stream. Handy when tuning an installation from a laptop on the same LAN.
//
// Usage:
//   glitch-watch
//   glitch-watch -url ws://clockwall.local:8717/ws
//   glitch-watch -types effect_start,effect_end,watchdog
//   glitch-watch -raw
// ============================================================================

type frame struct {
	Type string          `json:"type"`
	TsMS uint32          `json:"ts_ms"`
	Data json.RawMessage `json:"data"`
}

func main() {
	var (
		wsURL    = flag.String("url", "ws://127.0.0.1:8717/ws", "glitchd monitor websocket URL")
		typesCSV = flag.String("types", "", "comma-separated frame types to show (default: all except pulse)")
		raw      = flag.Bool("raw", false, "print raw JSON frames instead of formatted lines")
		pulses   = flag.Bool("pulses", false, "include per-pulse frames (noisy)")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	wanted := map[string]bool{}
	for _, t := range strings.Split(*typesCSV, ",") {
		if t = strings.TrimSpace(t); t != "" {
			wanted[t] = true
		}
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()
	log.Printf("connected (press Ctrl+C to exit)")

	var writeMu sync.Mutex

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()
	go func() {
		for range pingTicker.C {
			writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Printf("read: %v", err)
				return
			}

			var f frame
			if err := json.Unmarshal(message, &f); err != nil {
				log.Printf("bad frame: %v", err)
				continue
			}
			if len(wanted) > 0 {
				if !wanted[f.Type] {
					continue
				}
			} else if f.Type == "pulse" && !*pulses {
				continue
			}

			if *raw {
				fmt.Println(string(message))
				continue
			}
			fmt.Println(formatFrame(f))
		}
	}()

	select {
	case <-sigc:
		log.Println("shutting down...")
		writeMu.Lock()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	case <-done:
	}
}

// formatFrame renders one monitor frame as a single readable line. Unknown
// frame types fall back to their raw payload so a newer daemon still tails
// cleanly.
func formatFrame(f frame) string {
	ts := fmt.Sprintf("[%10dms]", f.TsMS)
	switch f.Type {
	case "state":
		var data struct {
			Mode  string `json:"mode"`
			Lanes []struct {
				ID      int     `json:"id"`
				BaseHz  float64 `json:"base_hz"`
				Running bool    `json:"running"`
				Frozen  bool    `json:"frozen"`
			} `json:"lanes"`
		}
		if err := json.Unmarshal(f.Data, &data); err != nil {
			break
		}
		parts := make([]string, 0, len(data.Lanes))
		for _, l := range data.Lanes {
			tag := ""
			if !l.Running {
				tag = "!"
			}
			if l.Frozen {
				tag += "*"
			}
			parts = append(parts, fmt.Sprintf("%d:%.2fHz%s", l.ID, l.BaseHz, tag))
		}
		return fmt.Sprintf("%s state mode=%s lanes=[%s]", ts, data.Mode, strings.Join(parts, " "))

	case "effect_start", "effect_progress", "effect_end":
		var data struct {
			Effect string `json:"effect"`
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(f.Data, &data); err != nil {
			break
		}
		return strings.TrimSpace(fmt.Sprintf("%s %s %s %s", ts, f.Type, data.Effect, data.Detail))

	case "subtle_glitch":
		var data struct {
			Lane   int    `json:"lane"`
			Glitch string `json:"glitch"`
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(f.Data, &data); err != nil {
			break
		}
		return strings.TrimSpace(fmt.Sprintf("%s subtle %s lane=%d %s", ts, data.Glitch, data.Lane, data.Detail))

	case "pulse":
		var data struct {
			Lane     int  `json:"lane"`
			Polarity bool `json:"polarity"`
		}
		if err := json.Unmarshal(f.Data, &data); err != nil {
			break
		}
		dir := "+"
		if !data.Polarity {
			dir = "-"
		}
		return fmt.Sprintf("%s pulse lane=%d %s", ts, data.Lane, dir)

	case "watchdog":
		var data struct {
			SilentMS uint32 `json:"silent_ms"`
		}
		if err := json.Unmarshal(f.Data, &data); err != nil {
			break
		}
		return fmt.Sprintf("%s watchdog re-arm silent=%dms", ts, data.SilentMS)
	}
	return fmt.Sprintf("%s %s %s", ts, f.Type, string(f.Data))
}
