package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

const baseURL = "http://localhost:3000/api"

// Pretty print JSON helper
func prettyPrint(body []byte) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		fmt.Println(string(body))
		return
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

// Request helper
func sendRequest(method, url string, body interface{}) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, baseURL+url, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{} // No timeout: streaming answers can take a while
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	return resp, respBody, err
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func main() {
	color.Cyan("🚀 Probing Research Assistant API\n")

	// 1. Create a session
	color.Yellow("\n1. Create session")
	resp, body, err := sendRequest("POST", "/assistant/v1/session", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	var env apiEnvelope
	_ = json.Unmarshal(body, &env)
	var session struct {
		Id string `json:"id"`
	}
	_ = json.Unmarshal(env.Data, &session)
	if session.Id == "" {
		color.Red("No session id in response")
		os.Exit(1)
	}

	// 2. Queue a library scan
	color.Yellow("\n2. Queue research library scan")
	resp, body, err = sendRequest("POST", "/system/v1/document", map[string]interface{}{})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	time.Sleep(2 * time.Second)

	// 3. List indexed documents
	color.Yellow("\n3. List documents")
	_, body, err = sendRequest("GET", "/system/v1/document", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	prettyPrint(body)

	// 4. Submit a chat
	color.Yellow("\n4. Submit chat")
	resp, body, err = sendRequest("POST", "/assistant/v1/chat", map[string]interface{}{
		"session_id": session.Id,
		"chat":       "Summarize the key points from my research notes on filter design.",
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Status: %s", resp.Status)
	prettyPrint(body)

	// 5. Poll the session until the answer lands
	color.Yellow("\n5. Waiting for answer...")
	deadline := time.Now().Add(3 * time.Minute)
	for time.Now().Before(deadline) {
		_, body, err = sendRequest("GET", "/assistant/v1/session/"+session.Id, nil)
		if err != nil {
			color.Red("Failed: %v", err)
			os.Exit(1)
		}
		_ = json.Unmarshal(body, &env)
		var state struct {
			State string `json:"state"`
		}
		_ = json.Unmarshal(env.Data, &state)
		fmt.Printf("  state=%s\n", state.State)
		if state.State == "IDLE" || state.State == "ERROR" {
			break
		}
		time.Sleep(2 * time.Second)
	}
	prettyPrint(body)

	// 6. GPU telemetry snapshot
	color.Yellow("\n6. Telemetry snapshot")
	_, body, err = sendRequest("GET", "/system/v1/telemetry", nil)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	prettyPrint(body)

	color.Cyan("\n✅ Probe complete")
}
