package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
)

// Smoke test against a running api service: registers two accounts, resolves
// the room between them from both sides and checks the ids agree, then pulls
// the (empty) history.

const apiAddr = "http://localhost:8081"

type loginResponse struct {
	Token string `json:"token"`
}

type resolveResponse struct {
	RoomID  string `json:"room_id"`
	Created bool   `json:"created"`
}

func register(email, password, name string) {
	reqBody, _ := json.Marshal(map[string]string{"email": email, "password": password, "name": name})
	resp, err := http.Post(apiAddr+"/register", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()
	// 409 means the account survives from a previous run, which is fine.
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusConflict {
		body, _ := io.ReadAll(resp.Body)
		log.Fatalf("register %s: %d %s", email, resp.StatusCode, string(body))
	}
}

func login(email, password string) string {
	reqBody, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := http.Post(apiAddr+"/login", "application/json", bytes.NewBuffer(reqBody))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Fatalf("login %s: %d %s", email, resp.StatusCode, string(body))
	}
	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Fatal(err)
	}
	return out.Token
}

func resolve(token, friend string) string {
	reqBody, _ := json.Marshal(map[string]string{"friend_email": friend})
	req, _ := http.NewRequest("POST", apiAddr+"/rooms", bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		log.Fatalf("resolve room: %d %s", resp.StatusCode, string(body))
	}
	var out resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Fatal(err)
	}
	return out.RoomID
}

func main() {
	register("verify-a@example.com", "secret-a", "Verify A")
	register("verify-b@example.com", "secret-b", "Verify B")

	tokenA := login("verify-a@example.com", "secret-a")
	tokenB := login("verify-b@example.com", "secret-b")
	fmt.Printf("Tokens: %s... / %s...\n", tokenA[:10], tokenB[:10])

	// Resolution must agree from both sides of the pair.
	roomFromA := resolve(tokenA, "verify-b@example.com")
	roomFromB := resolve(tokenB, "verify-a@example.com")
	if roomFromA != roomFromB {
		log.Fatalf("room ids diverge: %s vs %s", roomFromA, roomFromB)
	}
	log.Printf("Room resolves to %s from both sides", roomFromA)

	req, _ := http.NewRequest("GET", apiAddr+"/history?room_id="+roomFromA, nil)
	req.Header.Add("Authorization", "Bearer "+tokenA)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal("History request failed:", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	log.Printf("History: %s", string(body))
}
