package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vibeplane/pkg/api"

	"github.com/spf13/viper"
)

func TestStatusCommand_CompletedJob(t *testing.T) {
	resetViper()

	created := time.Now().Add(-10 * time.Minute)
	updated := time.Now().Add(-9 * time.Minute)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Verify request
		if r.Method != http.MethodGet {
			t.Errorf("expected GET method, got %s", r.Method)
		}
		if !strings.Contains(r.URL.Path, "/jobs/job-123") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("expected Bearer token, got: %s", r.Header.Get("Authorization"))
		}

		resp := api.JobStatusResponse{
			ID:          "job-123",
			Status:      "COMPLETED",
			Prompt:      "a kanban board",
			Model:       "vibe-m",
			PreviewURL:  "https://sbx-1.e2b.dev",
			CreatedAt:   created,
			LastUpdated: updated,
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"status", "job-123"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "job-123") {
		t.Errorf("expected job ID in output, got: %s", output)
	}
	if !strings.Contains(output, "COMPLETED") {
		t.Errorf("expected COMPLETED status, got: %s", output)
	}
	if !strings.Contains(output, "https://sbx-1.e2b.dev") {
		t.Errorf("expected preview URL in output, got: %s", output)
	}
	if !strings.Contains(output, "Finished:") {
		t.Errorf("expected Finished line for terminal job, got: %s", output)
	}
	if strings.Contains(output, "Error:") {
		t.Errorf("expected no Error line when error is empty, got: %s", output)
	}
}

func TestStatusCommand_FailedJob(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := api.JobStatusResponse{
			ID:          "job-456",
			Status:      "FAILED",
			Prompt:      "a markdown editor",
			Model:       "vibe-m",
			ErrorDetail: "execution failed: exit status 1",
			CreatedAt:   time.Now().Add(-5 * time.Minute),
			LastUpdated: time.Now().Add(-4 * time.Minute),
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"status", "job-456"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "FAILED") {
		t.Errorf("expected FAILED status, got: %s", output)
	}
	if !strings.Contains(output, "execution failed: exit status 1") {
		t.Errorf("expected error detail, got: %s", output)
	}
	if strings.Contains(output, "Preview:") {
		t.Errorf("expected no Preview line for failed job, got: %s", output)
	}
}

func TestStatusCommand_RunningJob(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := api.JobStatusResponse{
			ID:          "job-789",
			Status:      "RUNNING",
			Prompt:      "a pomodoro timer",
			Model:       "vibe-s",
			CreatedAt:   time.Now().Add(-1 * time.Minute),
			LastUpdated: time.Now().Add(-30 * time.Second),
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"status", "job-789"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "RUNNING") {
		t.Errorf("expected RUNNING status, got: %s", output)
	}
	if !strings.Contains(output, "Updated:") {
		t.Errorf("expected Updated line for running job, got: %s", output)
	}
	if strings.Contains(output, "Finished:") {
		t.Errorf("expected no Finished line for running job, got: %s", output)
	}
}

func TestStatusCommand_MissingToken(t *testing.T) {
	resetViper()

	viper.Set("url", "http://localhost:6161")
	viper.Set("token", "")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"status", "job-123"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "API token not found") {
		t.Errorf("expected token error message, got: %s", output)
	}
}

func TestStatusCommand_NotFound(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Job not found"))
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("token", "test-token")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"status", "non-existent"})

	err := rootCmd.Execute()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "Request failed (404)") {
		t.Errorf("expected 404 error, got: %s", output)
	}
}

func TestStatusCommand_RequiresJobIDArgument(t *testing.T) {
	resetViper()
	viper.Set("token", "test-token")

	var stderr bytes.Buffer
	rootCmd.SetOut(&stderr)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs([]string{"status"}) // No job ID

	err := rootCmd.Execute()
	if err == nil {
		t.Error("expected error when no job ID provided")
	}
}

func TestColorizeStatus(t *testing.T) {
	tests := []struct {
		status   string
		contains string
	}{
		{"COMPLETED", "COMPLETED"},
		{"FAILED", "FAILED"},
		{"RUNNING", "RUNNING"},
		{"PENDING", "PENDING"},
		{"CANCELLING", "CANCELLING"},
		{"CANCELLED", "CANCELLED"},
		{"UNKNOWN", "UNKNOWN"},
	}

	for _, tt := range tests {
		result := colorizeStatus(tt.status)
		if !strings.Contains(result, tt.contains) {
			t.Errorf("colorizeStatus(%s) should contain %s, got: %s", tt.status, tt.contains, result)
		}
	}
}

func TestStatusIcon(t *testing.T) {
	tests := []struct {
		status   string
		contains string
	}{
		{"COMPLETED", "✓"},
		{"FAILED", "✗"},
		{"RUNNING", "⏳"},
		{"PENDING", "◯"},
		{"CANCELLING", "⊘"},
		{"CANCELLED", "⊘"},
		{"UNKNOWN", "•"},
	}

	for _, tt := range tests {
		result := statusIcon(tt.status)
		if !strings.Contains(result, tt.contains) {
			t.Errorf("statusIcon(%s) should contain %s, got: %s", tt.status, tt.contains, result)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		expected string
	}{
		{500 * time.Millisecond, "500ms"},
		{1500 * time.Millisecond, "1.5s"},
		{65 * time.Second, "1m 5s"},
		{125 * time.Minute, "2h 5m"},
	}

	for _, tt := range tests {
		result := formatDuration(tt.duration)
		if result != tt.expected {
			t.Errorf("formatDuration(%v) = %s, want %s", tt.duration, result, tt.expected)
		}
	}
}

func TestRelativeTime(t *testing.T) {
	tests := []struct {
		offset   time.Duration
		contains string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{3 * time.Hour, "3h"},
		{48 * time.Hour, "2 days"},
	}

	for _, tt := range tests {
		testTime := time.Now().Add(-tt.offset)
		result := relativeTime(testTime)
		if !strings.Contains(result, tt.contains) {
			t.Errorf("relativeTime(%v ago) should contain %s, got: %s", tt.offset, tt.contains, result)
		}
	}
}
