package speech

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hammamikhairi/voicevibe/internal/logger"
)

func TestAzureSynthesize(t *testing.T) {
	var gotBody, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotKey = r.Header.Get("Ocp-Apim-Subscription-Key")
		w.Write([]byte("RIFF"))
	}))
	defer srv.Close()

	c := NewAzureClient("k", "westeurope", logger.New(logger.LevelOff, nil),
		WithEndpoint(srv.URL), WithRate("-15%"))
	audio, err := c.Synthesize(context.Background(), `Fish & "chips"`, DefaultVoiceA)
	if err != nil {
		t.Fatal(err)
	}
	if string(audio) != "RIFF" || gotKey != "k" {
		t.Fatalf("audio = %q, key = %q", audio, gotKey)
	}
	for _, want := range []string{"name='" + DefaultVoiceA + "'", "<prosody rate='-15%'>", "Fish &amp; &#34;chips&#34;"} {
		if !strings.Contains(gotBody, want) {
			t.Fatalf("ssml %q lacks %q", gotBody, want)
		}
	}
}

func TestAzureSynthesizeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewAzureClient("k", "x", logger.New(logger.LevelOff, nil), WithEndpoint(srv.URL))
	if _, err := c.Synthesize(context.Background(), "hi", ""); err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("err = %v", err)
	}
}

func TestSSMLWithoutRate(t *testing.T) {
	got := ssml("v", "", "hi")
	if strings.Contains(got, "prosody") || !strings.Contains(got, "name='v'>hi</voice>") {
		t.Fatalf("ssml = %q", got)
	}
}
