package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rizkyap/ngobrol/pkg/auth"
	"github.com/rizkyap/ngobrol/pkg/model"
)

type loginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type resolveResponse struct {
	RoomID  string `json:"room_id"`
	Created bool   `json:"created"`
}

type controlFrame struct {
	Action     string `json:"action"`
	Text       string `json:"text,omitempty"`
	URL        string `json:"url,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	MessageID  int64  `json:"message_id,omitempty"`
}

type serverFrame struct {
	Type     string          `json:"type"`
	Messages []model.Message `json:"messages,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func login(apiAddr, email, password string) (loginResponse, error) {
	reqBody, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := http.Post(apiAddr+"/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		return loginResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return loginResponse{}, fmt.Errorf("login failed: %s", string(body))
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return loginResponse{}, err
	}
	return out, nil
}

func resolveRoom(apiAddr, token, friend string) (string, error) {
	reqBody, _ := json.Marshal(map[string]string{"friend_email": friend})
	req, err := http.NewRequest(http.MethodPost, apiAddr+"/rooms", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("resolve room failed: %s", string(body))
	}

	var out resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Created {
		log.Printf("created new room %s", out.RoomID)
	}
	return out.RoomID, nil
}

// render prints a full room snapshot. Snapshots arrive whole and ordered, so
// the view is just a clear-and-reprint.
func render(me string, msgs []model.Message) {
	fmt.Print("\r\033[2J\033[H")
	for _, m := range msgs {
		who := m.Sender
		if m.Sender == me {
			who = "me"
		}
		body := m.Text
		if m.Image != "" {
			body = "[photo] " + m.Image
		}
		if m.Audio != "" {
			body = fmt.Sprintf("[audio %dms] %s", m.DurationMs, m.Audio)
		}
		mark := " "
		if m.Read {
			mark = "*"
		}
		if m.Pending() {
			mark = "?"
		}
		if m.Reply != nil {
			fmt.Printf("      > %s: %s\n", m.Reply.Sender, m.Reply.Text)
		}
		fmt.Printf("%s %s: %s\n", mark, who, body)
	}
	fmt.Print("> ")
}

func main() {
	serverAddr := flag.String("addr", "localhost:8080", "gateway service address")
	apiAddr := flag.String("api", "http://localhost:8081", "api service address")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	friend := flag.String("friend", "", "friend email to chat with")
	flag.Parse()

	if *email == "" || *password == "" || *friend == "" {
		log.Fatal("-email, -password and -friend are required")
	}

	log.Printf("logging in as %s...", *email)
	acct, err := login(*apiAddr, *email, *password)
	if err != nil {
		log.Fatal(err)
	}

	// The session holds the signed-in identity for everything downstream.
	session := auth.NewSession()
	unwatch := session.OnAuthChange(func(u *model.User) {
		if u == nil {
			log.Println("signed out")
		}
	})
	defer unwatch()
	session.Set(&model.User{Email: acct.Email, Name: acct.Name})
	defer session.Clear()
	me := session.User().Email

	roomID, err := resolveRoom(*apiAddr, acct.Token, *friend)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("room %s", roomID)

	u := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/ws"}
	q := u.Query()
	q.Set("room", roomID)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Add("Authorization", "Bearer "+acct.Token)

	c, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer c.Close()

	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				log.Println("read:", err)
				return
			}

			var frame serverFrame
			if err := json.Unmarshal(raw, &frame); err != nil {
				log.Printf("received raw: %s", raw)
				continue
			}

			switch frame.Type {
			case "snapshot":
				render(me, frame.Messages)
			case "error":
				fmt.Printf("\r! %s\n> ", frame.Error)
			}
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	send := func(frame controlFrame) bool {
		raw, _ := json.Marshal(frame)
		if err := c.WriteMessage(websocket.TextMessage, raw); err != nil {
			log.Println("write:", err)
			return false
		}
		return true
	}

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			text := scanner.Text()
			if text == "" {
				fmt.Print("> ")
				continue
			}

			switch {
			case text == "/quit":
				close(interrupt)
				return

			case text == "/typing":
				if !send(controlFrame{Action: "typing"}) {
					return
				}

			case strings.HasPrefix(text, "/reply "):
				// /reply <message id>, then the next plain line is the body.
				id, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(text, "/reply ")), 10, 64)
				if err != nil {
					fmt.Print("! bad message id\n> ")
					continue
				}
				if !send(controlFrame{Action: "reply", MessageID: id}) {
					return
				}

			case text == "/cancel-reply":
				if !send(controlFrame{Action: "cancel_reply"}) {
					return
				}

			case strings.HasPrefix(text, "/image "):
				if !send(controlFrame{Action: "image", URL: strings.TrimSpace(strings.TrimPrefix(text, "/image "))}) {
					return
				}

			default:
				// Plain text is a message send.
				if !send(controlFrame{Action: "text", Text: text}) {
					return
				}
			}
			fmt.Print("> ")
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("interrupt")

			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("write close:", err)
				return
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}
