package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shenikar/event_rescue/internal/models"
	"github.com/shenikar/event_rescue/internal/normalizer"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListIncidents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/incidents", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`{"incidents":[{"id":"a","type":"panic","severity":0.5,"confidence":50,"zone":"A","status":"active","timestamp":"2026-03-01T12:00:00Z"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/v1", "secret", time.Second)
	got, err := c.ListIncidents(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, models.TypePanic, got[0].Type)
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"API key required"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", time.Second).Summary(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "API key required", apiErr.Message)
}

func TestIngest_NormalizesBeforeSending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/incidents/add", r.URL.Path)
		var inc models.Incident
		require.NoError(t, json.NewDecoder(r.Body).Decode(&inc))
		assert.Equal(t, models.TypeLostFoundMatch, inc.Type)
		assert.Equal(t, 0.99, inc.Severity)
		assert.Equal(t, "device-7", inc.SourceDeviceID)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "incident": inc})
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second, WithDeviceID("device-7"))
	inc, err := c.Ingest(context.Background(), normalizer.MatchPayload{
		Candidate: models.MatchCandidate{Score: 0.995, Description: "black wallet"},
		Zone:      "Hall 2",
	})

	require.NoError(t, err)
	assert.Equal(t, "Possible match: black wallet", inc.Description)
}

func TestSubmitVoiceAlert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sub models.VoiceAlertSubmission
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sub))
		assert.Equal(t, models.VoiceScream, sub.Category)
		assert.Equal(t, "device-7", sub.DeviceID)
		_, _ = w.Write([]byte(`{"status":"received","alert_id":"x"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "", time.Second, WithDeviceID("device-7"))
	err := c.SubmitVoiceAlert(context.Background(), models.VoiceAlert{ID: "x", Category: models.VoiceScream, Confidence: 80})
	assert.NoError(t, err)
}

func TestDecodePush(t *testing.T) {
	n := normalizer.New()

	inc, err := DecodePush(n, []byte(`{"type":"incident","incident":{"type":"fire_detected","zone":"A","severity":0.9}}`))
	require.NoError(t, err)
	assert.NotEmpty(t, inc.ID)
	assert.Equal(t, 90, inc.Confidence)
	assert.Equal(t, models.StatusActive, inc.Status)

	for _, raw := range []string{
		`not json`,
		`{"type":"summary","incident":{"id":"a","type":"panic"}}`,
		`{"type":"incident"}`,
		`{"type":"incident","incident":{"id":"a","type":"alien_invasion"}}`,
	} {
		_, err := DecodePush(n, []byte(raw))
		assert.ErrorIs(t, err, errMalformedPush, raw)
	}
}

func TestPushListener_DropsMalformedAndContinues(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{broken`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"incident","incident":{"id":"b","type":"smoke_detected","severity":0.3}}`))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	l := NewPushListener(srv.URL, "", time.Hour, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan models.Incident, 1)
	go l.Run(ctx, func(inc models.Incident) { got <- inc })

	select {
	case inc := <-got:
		assert.Equal(t, "b", inc.ID)
	case <-time.After(3 * time.Second):
		t.Fatal("push not delivered")
	}
}
