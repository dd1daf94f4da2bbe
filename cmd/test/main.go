package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[36m"
)

type TestClient struct {
	baseURL string
	client  *http.Client
}

func NewTestClient(baseURL string) *TestClient {
	return &TestClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the agent")
	testType := flag.String("test", "all", "Test type: all, health, agent-card, simulate, rest, custom")
	idea := flag.String("idea", "", "Idea to simulate (for custom test)")
	flag.Parse()

	client := NewTestClient(*baseURL)

	printHeader("SynthSense Agent - Smoke Tests")
	fmt.Printf("%sBase URL: %s%s\n\n", colorCyan, *baseURL, colorReset)

	switch *testType {
	case "all":
		client.runAllTests()
	case "health":
		client.testHealthCheck()
	case "agent-card":
		client.testAgentCard()
	case "simulate":
		client.testA2ASimulation()
	case "rest":
		client.testRESTFlow()
	case "custom":
		if *idea == "" {
			printError("An idea is required for custom test. Use -idea flag")
			os.Exit(1)
		}
		client.testCustomIdea(*idea)
	default:
		printError(fmt.Sprintf("Unknown test type: %s", *testType))
		fmt.Println("\nAvailable tests: all, health, agent-card, simulate, rest, custom")
		os.Exit(1)
	}
}

func (tc *TestClient) runAllTests() {
	tests := []struct {
		name string
		fn   func() bool
	}{
		{"Health Check", tc.testHealthCheck},
		{"Agent Card", tc.testAgentCard},
		{"A2A Simulation", tc.testA2ASimulation},
		{"REST Simulation and Chat", tc.testRESTFlow},
	}

	passed := 0
	failed := 0

	for _, test := range tests {
		if test.fn() {
			passed++
		} else {
			failed++
		}
		fmt.Println()
	}

	printHeader("Test Summary")
	fmt.Printf("%sPassed: %d%s\n", colorGreen, passed, colorReset)
	fmt.Printf("%sFailed: %d%s\n", colorRed, failed, colorReset)
	fmt.Printf("Total: %d\n", passed+failed)

	if failed > 0 {
		os.Exit(1)
	}
}

func (tc *TestClient) testHealthCheck() bool {
	printTestHeader("Testing Health Check Endpoint")

	url := fmt.Sprintf("%s/health", tc.baseURL)
	fmt.Printf("GET %s\n", url)

	resp, err := tc.client.Get(url)
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		printError(fmt.Sprintf("Expected status 200, got %d", resp.StatusCode))
		return false
	}

	if string(body) != "OK" {
		printError(fmt.Sprintf("Expected body 'OK', got '%s'", string(body)))
		return false
	}

	printSuccess("Health check passed")
	return true
}

func (tc *TestClient) testAgentCard() bool {
	printTestHeader("Testing Agent Card Endpoint")

	url := fmt.Sprintf("%s/.well-known/agent.json", tc.baseURL)
	fmt.Printf("GET %s\n", url)

	resp, err := tc.client.Get(url)
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		printError(fmt.Sprintf("Expected status 200, got %d", resp.StatusCode))
		fmt.Printf("Response: %s\n", string(body))
		return false
	}

	// Parse JSON to validate it's valid
	var agentCard map[string]any
	if err := json.Unmarshal(body, &agentCard); err != nil {
		printError(fmt.Sprintf("Invalid JSON response: %v", err))
		return false
	}

	// Check required fields
	requiredFields := []string{"name", "description", "version", "capabilities", "endpoints"}
	for _, field := range requiredFields {
		if _, ok := agentCard[field]; !ok {
			printError(fmt.Sprintf("Missing required field: %s", field))
			return false
		}
	}

	printSuccess("Agent card is valid")
	printJSON(body)
	return true
}

func (tc *TestClient) testA2ASimulation() bool {
	idea := "A sustainable fashion e-commerce platform targeting eco-conscious millennials"
	return tc.testCustomIdea(idea)
}

func (tc *TestClient) testCustomIdea(idea string) bool {
	printTestHeader("Testing A2A Simulation")

	url := fmt.Sprintf("%s/a2a/simulate", tc.baseURL)
	fmt.Printf("%sIdea:%s %s\n\n", colorCyan, colorReset, idea)

	request := map[string]any{
		"jsonrpc": "2.0",
		"id":      fmt.Sprintf("test-%d", time.Now().Unix()),
		"method":  "message/send",
		"params": map[string]any{
			"message": map[string]any{
				"kind":  "message",
				"role":  "user",
				"parts": []map[string]any{{"kind": "text", "text": idea}},
			},
			"configuration": map[string]any{
				"blocking":            true,
				"acceptedOutputModes": []string{"text", "data"},
			},
		},
	}

	var response map[string]any
	if !tc.postJSON(url, request, &response) {
		return false
	}

	if errObj, ok := response["error"]; ok {
		printError("Request returned an error")
		errJSON, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Println(string(errJSON))
		return false
	}

	result, ok := response["result"].(map[string]any)
	if !ok {
		printError("Invalid result format")
		return false
	}
	status, ok := result["status"].(map[string]any)
	if !ok {
		printError("Invalid status format")
		return false
	}
	if state, _ := status["state"].(string); state != "completed" {
		printError(fmt.Sprintf("Expected state 'completed', got '%s'", state))
		printMessage(status)
		return false
	}

	printSuccess("Simulation completed successfully")
	printMessage(status)
	fmt.Printf("%sTask id:%s %v\n", colorPurple, colorReset, result["id"])
	return true
}

// testRESTFlow runs a simulation over the REST API, reads it back and asks
// one persona a follow-up question.
func (tc *TestClient) testRESTFlow() bool {
	printTestHeader("Testing REST Simulation and Persona Chat")

	request := map[string]any{
		"idea_text": "A pay-per-minute coworking space near train stations",
		"personas": []map[string]any{
			{"id": "smoke-1", "persona_data": map[string]any{"persona_name": "Maya Patel", "age": 29, "sex": "Female", "income_level": "medium", "relationship_status": "Single", "occupation": "UX Designer"}},
			{"id": "smoke-2", "persona_data": map[string]any{"persona_name": "Tom Berg", "age": 54, "sex": "Male", "income_level": "high", "relationship_status": "Married", "occupation": "Sales Director"}},
		},
	}

	var result map[string]any
	if !tc.postJSON(tc.baseURL+"/api/simulations", request, &result) {
		return false
	}
	if status, _ := result["status"].(string); status != "completed" {
		printError(fmt.Sprintf("Expected status 'completed', got '%s': %v", status, result["error_message"]))
		return false
	}
	experimentID, _ := result["experiment_id"].(string)
	printSuccess(fmt.Sprintf("Simulation %s completed: %v", experimentID, result["sentiment_breakdown"]))

	resp, err := tc.client.Get(fmt.Sprintf("%s/api/simulations/%s", tc.baseURL, experimentID))
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		printError(fmt.Sprintf("Expected stored result, got status %d", resp.StatusCode))
		return false
	}
	printSuccess("Stored result found")

	var reply map[string]any
	chatURL := fmt.Sprintf("%s/api/chat/%s/smoke-1", tc.baseURL, experimentID)
	if !tc.postJSON(chatURL, map[string]any{"content": "What would make you use it every week?"}, &reply) {
		return false
	}
	printSuccess("Persona replied")
	fmt.Printf("%sMaya:%s %v\n", colorCyan, colorReset, reply["content"])
	return true
}

func (tc *TestClient) postJSON(url string, payload any, out any) bool {
	jsonData, _ := json.MarshalIndent(payload, "", "  ")
	fmt.Printf("POST %s\n", url)

	resp, err := tc.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		printError(fmt.Sprintf("Expected status 200, got %d", resp.StatusCode))
		fmt.Printf("Response: %s\n", string(body))
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		printError(fmt.Sprintf("Invalid JSON response: %v", err))
		return false
	}
	return true
}

func printMessage(status map[string]any) {
	msg, ok := status["message"].(map[string]any)
	if !ok {
		return
	}
	parts, _ := msg["parts"].([]any)
	fmt.Println(strings.Repeat("=", 80))
	for _, part := range parts {
		if p, ok := part.(map[string]any); ok {
			if text, ok := p["text"].(string); ok {
				fmt.Println(text)
			}
		}
	}
	fmt.Println(strings.Repeat("=", 80))
}

func printHeader(text string) {
	fmt.Printf("\n%s%s%s\n", colorBlue, strings.Repeat("=", len(text)+4), colorReset)
	fmt.Printf("%s= %s =%s\n", colorBlue, text, colorReset)
	fmt.Printf("%s%s%s\n\n", colorBlue, strings.Repeat("=", len(text)+4), colorReset)
}

func printTestHeader(text string) {
	fmt.Printf("%s[TEST] %s%s\n", colorCyan, text, colorReset)
	fmt.Println(strings.Repeat("-", 80))
}

func printSuccess(text string) {
	fmt.Printf("%s✓ %s%s\n", colorGreen, text, colorReset)
}

func printError(text string) {
	fmt.Printf("%s✗ %s%s\n", colorRed, text, colorReset)
}

func printJSON(data []byte) {
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, data, "", "  "); err == nil {
		fmt.Printf("\n%sResponse:%s\n%s\n", colorYellow, colorReset, prettyJSON.String())
	}
}
