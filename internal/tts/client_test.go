package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smart-quiz-service/internal/domain"
	"smart-quiz-service/internal/ratelimit"
)

func newTestLimiter() *ratelimit.Limiter {
	return ratelimit.New(ratelimit.NewMemoryWindow(), ratelimit.Config{
		Key:        "speech",
		Limit:      100,
		Per:        time.Minute,
		MaxRetries: 1,
		Backoff:    time.Millisecond,
		MaxPayload: 1000,
	})
}

func TestSynthesizeReturnsAudio(t *testing.T) {
	var got synthesizeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	client := NewClient(Options{Endpoint: server.URL, APIKey: "key"}, newTestLimiter())
	audio, err := client.Synthesize(context.Background(), "Hello there", "nova")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("unexpected audio %q", audio)
	}
	if got.Input != "Hello there" || got.Voice != "nova" || got.Model != "tts-1" {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestSynthesizeRejectsUnknownVoice(t *testing.T) {
	client := NewClient(Options{Endpoint: "http://unused"}, newTestLimiter())
	_, err := client.Synthesize(context.Background(), "hello", "robotic")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSynthesizeMapsServerFailure(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Options{Endpoint: server.URL}, newTestLimiter())
	_, err := client.Synthesize(context.Background(), "hello", "alloy")
	if !errors.Is(err, domain.ErrExternalService) {
		t.Fatalf("expected external service error, got %v", err)
	}
	if hits != 2 {
		t.Fatalf("expected initial attempt plus one retry, got %d", hits)
	}
}

func TestSynthesizeRateLimitedBeforeRemoteCall(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	limiter := ratelimit.New(ratelimit.NewMemoryWindow(), ratelimit.Config{Key: "speech", Limit: 1, Per: time.Minute})
	client := NewClient(Options{Endpoint: server.URL}, limiter)

	if _, err := client.Synthesize(context.Background(), "hello", "alloy"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	_, err := client.Synthesize(context.Background(), "hello again", "alloy")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if hits != 1 {
		t.Fatalf("remote capability hit %d times, expected 1", hits)
	}
}
