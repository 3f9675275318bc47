package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = "## 📊 Performance Comparison (Node.js v20.11.0)\n\n### hello-world\n\n| Metric |\n"

func TestGitHubComment(t *testing.T) {
	var (
		path    string
		headers http.Header
		payload map[string]string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		headers = r.Header.Clone()

		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &payload)

		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	gh := NewGitHubComment(srv.URL+"/", "expressjs/express", "6123", "ghp_token")
	require.NoError(t, gh.Notify(context.Background(), sampleReport))

	assert.Equal(t, "/repos/expressjs/express/issues/6123/comments", path)
	assert.Equal(t, "Bearer ghp_token", headers.Get("Authorization"))
	assert.Equal(t, "application/vnd.github+json", headers.Get("Accept"))
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.Equal(t, map[string]string{"body": sampleReport}, payload)
}

func TestGitHubComment_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewGitHubComment(srv.URL, "expressjs/express", "1", "bad").Notify(context.Background(), sampleReport)
	require.ErrorIs(t, err, errCommentRejected)
	assert.Contains(t, err.Error(), "Bad credentials")
}

func TestSlack(t *testing.T) {
	var form map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		form = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000000.000100"}`))
	}))
	defer srv.Close()

	s := NewSlack("xoxb-test", "#perf", slack.OptionAPIURL(srv.URL+"/"))
	require.NoError(t, s.Notify(context.Background(), sampleReport))

	assert.Equal(t, []string{"#perf"}, form["channel"])
	assert.Equal(t, []string{sampleReport}, form["text"])
}

type fakeNotifier struct {
	name string
	err  error
	got  []string
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Notify(_ context.Context, report string) error {
	f.got = append(f.got, report)
	return f.err
}

func TestManager_ContinuesAfterFailure(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	first := &fakeNotifier{name: "github", err: errors.New("timeout")}
	second := &fakeNotifier{name: "slack"}

	err := NewManager(log, first, second).Notify(context.Background(), sampleReport)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "github: timeout")
	assert.Equal(t, []string{sampleReport}, second.got)
}
