package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/session/create", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var req CreateSessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Ava", req.StudentName)
		assert.Equal(t, "General", req.Subject)

		_ = json.NewEncoder(w).Encode(CreateSessionResponse{SessionID: "4821", StudentName: "Ava"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL + "/")
	resp, err := c.CreateSession(context.Background(), "Ava", "General")
	require.NoError(t, err)
	assert.Equal(t, "4821", resp.SessionID)
	assert.Equal(t, "Ava", resp.StudentName)
}

func TestAsk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req AskRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "4821", req.SessionID)
		assert.Equal(t, "beginner", req.StudentLevel)
		assert.Equal(t, "quick", req.ExplanationMode)

		_, _ = w.Write([]byte(`{"answer":"Water moves across a membrane.","follow_up_suggestions":["Give an example"],` +
			`"is_weak":true,"sources":[{"filename":"bio.pdf","excerpt":"Osmosis is"}],"web_sources":[]}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).Ask(context.Background(), AskRequest{
		Question:        "What is osmosis?",
		SessionID:       "4821",
		StudentLevel:    "beginner",
		ExplanationMode: "quick",
	})
	require.NoError(t, err)
	assert.Equal(t, "Water moves across a membrane.", resp.Answer)
	assert.Equal(t, []string{"Give an example"}, resp.FollowUpSuggestions)
	assert.True(t, resp.IsWeak)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "bio.pdf", resp.Sources[0].Filename)
}

func TestErrorDetailIsNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"Quiz failed"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GenerateQuiz(context.Background(), QuizRequest{SessionID: "1", Topic: "cells", NumQuestions: 3})
	var ce *ConnectionError
	require.True(t, errors.As(err, &ce), "expected *ConnectionError, got %T", err)
	assert.Equal(t, http.StatusInternalServerError, ce.Status)
	assert.Equal(t, "Quiz failed", ce.Error())
}

func TestErrorWithoutDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewClient(srv.URL).ReportConfusion(context.Background(), ConfusionRequest{SessionID: "1", Topic: "x", ConfusionLevel: 4})
	var ce *ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Request failed with status code 502", ce.Message)
}

func TestUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewClient(addr).CreateSession(context.Background(), "Ava", "")
	var ce *ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.Zero(t, ce.Status)
	assert.NotEmpty(t, ce.Message)
	assert.NotNil(t, errors.Unwrap(err))
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	err := NewClient(srv.URL, WithTimeout(50*time.Millisecond)).Health(context.Background())
	var ce *ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "timeout exceeded", ce.Message)
}

func TestInsightsAndHealth(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/insights/4821", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total_questions":3,"frequently_asked":[{"topic":"osmosis","count":2}],` +
			`"subjects_covered":["Biology"],"confusion_areas":[{"topic":"osmosis","avg_confusion":3.5,"reports":2}],` +
			`"learning_history":[{"question":"q","answer":"a","type":"answered","topic":"osmosis"}]}`))
	})
	mux.HandleFunc("/global-insights", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"frequent_topics":[{"topic":"cells","count":9}]}`))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	in, err := c.Insights(ctx, "4821")
	require.NoError(t, err)
	assert.Equal(t, 3, in.TotalQuestions)
	assert.Equal(t, 3.5, in.ConfusionAreas[0].AvgConfusion)
	assert.Equal(t, "osmosis", in.LearningHistory[0].Topic)

	g, err := c.GlobalInsights(ctx)
	require.NoError(t, err)
	assert.Equal(t, []TopicCount{{Topic: "cells", Count: 9}}, g.FrequentTopics)

	assert.NoError(t, c.Health(ctx))
}

func TestMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>proxy page</html>`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Ask(context.Background(), AskRequest{Question: "q", SessionID: "1"})
	var ce *ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "unexpected response from backend", ce.Message)
}

func TestQuizResponseConversion(t *testing.T) {
	resp := &QuizResponse{
		Title: "Cells",
		Questions: []QuizQuestion{
			{QuestionText: "Powerhouse of the cell?", Options: []string{"Nucleus", "Mitochondria"}, CorrectAnswerIndex: 1, Explanation: "ATP."},
			{QuestionText: "", Options: []string{"x"}},
			{QuestionText: "Broken key", Options: []string{"a", "b"}, CorrectAnswerIndex: 7},
		},
	}

	q := resp.Quiz()
	require.Len(t, q.Items, 2)
	assert.Equal(t, 1, q.Items[0].Answer)
	assert.Equal(t, "ATP.", q.Items[0].Explanation)
	assert.Equal(t, -1, q.Items[1].Answer)
}
