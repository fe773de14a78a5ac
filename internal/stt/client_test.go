package stt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestTranscribeSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "audio/wav" {
			t.Errorf("Content-Type = %q", ct)
		}
		if cid := r.Header.Get("X-Correlation-ID"); cid != "cid-1" {
			t.Errorf("correlation id = %q", cid)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"text": "  hello world ", "confidence": 0.9})
	}))
	defer ts.Close()

	c := New(ts.URL, "ja", 0.4, 5*time.Second)
	text, err := c.Transcribe(context.Background(), []int16{1, 2, 3}, "cid-1")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("text = %q", text)
	}
}

func TestTranscribeEmptyIsFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"text": "   ", "confidence": 0.9})
	}))
	defer ts.Close()

	c := New(ts.URL, "", 0, 5*time.Second)
	_, err := c.Transcribe(context.Background(), []int16{1}, "")
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("expected ErrTranscriptionFailed for whitespace-only text, got %v", err)
	}
}

func TestTranscribeLowConfidence(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"text": "maybe words", "confidence": 0.1})
	}))
	defer ts.Close()

	c := New(ts.URL, "", 0.4, 5*time.Second)
	_, err := c.Transcribe(context.Background(), []int16{1}, "")
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("expected ErrTranscriptionFailed for low confidence, got %v", err)
	}
}

func TestTranscribeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"text": "recovered", "confidence": 0.8})
	}))
	defer ts.Close()

	c := New(ts.URL, "", 0, 5*time.Second)
	text, err := c.Transcribe(context.Background(), []int16{1}, "")
	if err != nil {
		t.Fatalf("expected recovery after retries, got %v", err)
	}
	if text != "recovered" || calls.Load() != 3 {
		t.Fatalf("text=%q calls=%d", text, calls.Load())
	}
}

func TestTranscribeUnreachable(t *testing.T) {
	c := New("http://127.0.0.1:1/transcribe", "", 0, 200*time.Millisecond)
	_, err := c.Transcribe(context.Background(), []int16{1}, "")
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("expected ErrTranscriptionFailed for unreachable backend, got %v", err)
	}
}
