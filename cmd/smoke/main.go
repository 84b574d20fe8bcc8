package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

// smoke drives one GPS session through the REST API: create, surface, grant,
// reference fix, a fix 100 m north, pause and resume.

var (
	baseURL = flag.String("base", "http://localhost:3000/api", "API base URL")
	token   = flag.String("token", os.Getenv("ARSESSION_TOKEN"), "bearer token when JWT_SECRET is set")
)

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type sessionView struct {
	Session struct {
		ID         string                 `json:"id"`
		State      string                 `json:"state"`
		Reference  map[string]interface{} `json:"reference"`
		LastOffset map[string]interface{} `json:"last_offset"`
	} `json:"session"`
	PendingRequest *struct {
		Token        string   `json:"token"`
		Capabilities []string `json:"capabilities"`
	} `json:"pending_request"`
}

func prettyPrint(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%v\n", v)
		return
	}
	fmt.Println(string(b))
}

func sendRequest(method, path string, body interface{}) (*sessionView, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, *baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if *token != "" {
		req.Header.Set("Authorization", "Bearer "+*token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", resp.Status, err)
	}
	if !out.Success {
		if out.Error != nil {
			return nil, fmt.Errorf("%s: %s", resp.Status, out.Error.Message)
		}
		return nil, fmt.Errorf("%s", resp.Status)
	}

	var view sessionView
	if err := json.Unmarshal(out.Data, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func step(title, method, path string, body interface{}) *sessionView {
	color.Yellow("\n%s", title)
	view, err := sendRequest(method, path, body)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	if view.Session.State != "" {
		color.Green("State: %s", view.Session.State)
	} else {
		color.Green("OK")
	}
	return view
}

func main() {
	flag.Parse()
	color.Cyan("🚀 Starting AR session smoke test against %s", *baseURL)

	view := step("1. Create GPS session", "POST", "/sessions", map[string]interface{}{"uses_location": true})
	id := view.Session.ID
	color.White("Session: %s", id)

	view = step("2. Surface created", "POST", "/sessions/"+id+"/surface", nil)

	if view.PendingRequest != nil {
		granted := make([]bool, len(view.PendingRequest.Capabilities))
		for i := range granted {
			granted[i] = true
		}
		view = step(fmt.Sprintf("3. Grant %v", view.PendingRequest.Capabilities), "POST", "/sessions/"+id+"/permissions",
			map[string]interface{}{"granted": granted})
	}

	const lat, lon = 37.4219999, -122.0840575
	step("4. Reference fix", "POST", "/sessions/"+id+"/fixes", map[string]interface{}{"lat": lat, "lon": lon, "altitude_m": 10})
	step("5. Fix ~100 m north", "POST", "/sessions/"+id+"/fixes", map[string]interface{}{"lat": lat + 100.0/111195.0, "lon": lon, "altitude_m": 15})

	view = step("6. Inspect", "GET", "/sessions/"+id, nil)
	prettyPrint(view.Session)

	step("7. Pause", "POST", "/sessions/"+id+"/pause", nil)
	step("8. Resume", "POST", "/sessions/"+id+"/resume", nil)

	color.Cyan("\n✅ Smoke test finished")
}
