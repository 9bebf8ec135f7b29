package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ddgFixture = `<html><body>
<div class="result results_links web-result">
  <h2 class="result__title"><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F&amp;rut=abc">Documentation - The Go Programming Language</a></h2>
  <a class="result__snippet" href="#">The Go programming language is an open source project.</a>
</div>
<div class="result results_links web-result">
  <h2 class="result__title"><a class="result__a" href="https://pkg.go.dev/">Go Packages</a></h2>
  <a class="result__snippet" href="#">Discover packages.</a>
</div>
<div class="result result--ad"><a class="result__a" href=""></a></div>
<div class="result"><h2><a class="result__a" href="https://example.com/3">Third</a></h2></div>
</body></html>`

func TestDuckDuckGo_Search(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotQuery = r.PostForm.Get("q")
		_, _ = w.Write([]byte(ddgFixture))
	}))
	defer srv.Close()

	d := NewDuckDuckGo(func(o *DuckDuckGoOptions) {
		o.BaseURL = srv.URL
		o.MaxResults = 2
	})
	results, err := d.Search(context.Background(), "golang docs")
	require.NoError(t, err)
	assert.Equal(t, "golang docs", gotQuery)

	require.Len(t, results, 2)
	assert.Equal(t, "Documentation - The Go Programming Language", results[0].Title)
	assert.Equal(t, "https://go.dev/doc/", results[0].URL)
	assert.Equal(t, "The Go programming language is an open source project.", results[0].Snippet)
	assert.Equal(t, "https://pkg.go.dev/", results[1].URL)

	out, err := d.Query(context.Background(), "golang docs")
	require.NoError(t, err)
	assert.Contains(t, out, "- Go Packages (https://pkg.go.dev/): Discover packages.")
}

func TestDuckDuckGo_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewDuckDuckGo(func(o *DuckDuckGoOptions) { o.BaseURL = srv.URL })
	_, err := d.Query(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestDuckDuckGo_Disabled(t *testing.T) {
	d := NewDuckDuckGo(func(o *DuckDuckGoOptions) { o.Enabled = false })
	assert.False(t, d.Enabled())
	assert.Equal(t, "DuckDuckGo", d.Name())
}

func TestPerplexity_Query(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer pplx-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","created":0,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Go 1.24 is current."}}]}`))
	}))
	defer srv.Close()

	p := NewPerplexity(func(o *PerplexityOptions) {
		o.APIKey = "pplx-test"
		o.BaseURL = srv.URL + "/"
		o.MaxRetries = 0
	})
	require.True(t, p.Enabled())

	out, err := p.Query(context.Background(), "latest go version")
	require.NoError(t, err)
	assert.Equal(t, "Go 1.24 is current.", out)
	assert.Equal(t, DefaultPerplexityModel, body["model"])
}

func TestPerplexity_DisabledWithoutKey(t *testing.T) {
	assert.False(t, NewPerplexity().Enabled())
}
