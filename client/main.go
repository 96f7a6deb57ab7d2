package main

import (
	"bufio"
	"encoding/json"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// send serializes and sends a message to the lobby server.
func send(c *websocket.Conn, msg map[string]interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: "localhost:8080", Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			log.Printf("<- RECV: %s", string(message))
		}
	}()

	log.Println("Client started. Commands:")
	log.Println("  create")
	log.Println("  join <code> <name>")
	log.Println("  spin <payload>")
	log.Println("  score <player> <points> <win|loss|none>")

	// Write loop
	reader := bufio.NewReader(os.Stdin)
	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		default:
			text, _ := reader.ReadString('\n')
			fields := strings.Fields(text)
			if len(fields) == 0 {
				continue
			}

			var msg map[string]interface{}
			switch fields[0] {
			case "create":
				msg = map[string]interface{}{"type": "createLobby"}
			case "join":
				if len(fields) < 3 {
					log.Println("Usage: join <code> <name>")
					continue
				}
				msg = map[string]interface{}{"type": "joinLobby", "code": fields[1], "playerName": fields[2]}
			case "spin":
				payload := "reels"
				if len(fields) > 1 {
					payload = fields[1]
				}
				msg = map[string]interface{}{"type": "spin", "spinData": payload}
			case "score":
				if len(fields) < 4 {
					log.Println("Usage: score <player> <points> <win|loss|none>")
					continue
				}
				points, err := strconv.Atoi(fields[2])
				if err != nil {
					log.Println("Points must be an integer")
					continue
				}
				msg = map[string]interface{}{"type": "updateScore", "player": fields[1], "points": points, "actionType": fields[3]}
			default:
				log.Printf("Unknown command %q", fields[0])
				continue
			}

			if err := send(c, msg); err != nil {
				log.Println("Write error:", err)
				return
			}
			log.Printf("-> SENT: %s", fields[0])
		}
	}
}
