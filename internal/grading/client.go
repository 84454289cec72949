package grading

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sam/code-clash/internal/domain"
)

// Client talks to a Piston-style code execution service. Every call is
// bounded by the configured timeout; callers treat any error as a grading
// failure and degrade to an incorrect result.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type TestResult struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
}

type Result struct {
	IsCorrect     bool         `json:"isCorrect"`
	Feedback      string       `json:"feedback"`
	ExecutionTime int          `json:"executionTime"`
	TestResults   []TestResult `json:"testResults"`
}

type executeRequest struct {
	Language string        `json:"language"`
	Version  string        `json:"version"`
	Files    []executeFile `json:"files"`
	Stdin    string        `json:"stdin"`
}

type executeFile struct {
	Content string `json:"content"`
}

type executeResponse struct {
	Run struct {
		Stdout string `json:"stdout"`
		Stderr string `json:"stderr"`
		Code   int    `json:"code"`
	} `json:"run"`
	Message string `json:"message"`
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Run executes the code against every test case and compares trimmed stdout
// with the expected output. The context deadline bounds the whole run.
func (c *Client) Run(ctx context.Context, code, language string, cases []domain.TestCase) (*Result, error) {
	result := &Result{
		TestResults: make([]TestResult, 0, len(cases)),
	}

	start := time.Now()
	passed := 0

	for _, tc := range cases {
		stdout, err := c.execute(ctx, code, language, tc.Input)
		if err != nil {
			return nil, err
		}

		actual := strings.TrimSpace(stdout)
		expected := strings.TrimSpace(tc.ExpectedOutput)
		ok := actual == expected
		if ok {
			passed++
		}

		result.TestResults = append(result.TestResults, TestResult{
			Input:    tc.Input,
			Expected: expected,
			Actual:   actual,
			Passed:   ok,
		})
	}

	result.ExecutionTime = int(time.Since(start).Milliseconds())
	result.IsCorrect = len(cases) > 0 && passed == len(cases)
	if result.IsCorrect {
		result.Feedback = "All test cases passed"
	} else {
		result.Feedback = fmt.Sprintf("%d/%d test cases passed", passed, len(cases))
	}

	return result, nil
}

func (c *Client) execute(ctx context.Context, code, language, stdin string) (string, error) {
	body, err := json.Marshal(executeRequest{
		Language: language,
		Version:  "*",
		Files:    []executeFile{{Content: code}},
		Stdin:    stdin,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("executor returned %d: %s", resp.StatusCode, out.Message)
	}

	return out.Run.Stdout, nil
}
