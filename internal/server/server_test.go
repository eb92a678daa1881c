package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/gortx/internal/ruleset"
	"github.com/jcorbin/gortx/internal/server"
)

func testRules(t *testing.T) *ruleset.RuleSet {
	b := ruleset.NewBuilder()
	b.Rule("adj-n", 0, `CHUNK STRING "NP<np>" APPENDSURFACE
		INT 2 PUSHINPUT APPENDCHILD INT 1 BLANK APPENDCHILD INT 1 PUSHINPUT APPENDCHILD
		OUTPUT`, "adj", "n")
	b.Rule("bad", 0, `DROP`, "vblex")
	rs, err := b.Build()
	require.NoError(t, err)
	return rs
}

func testServer(t *testing.T) *server.Server {
	return server.New(testRules(t), zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel))
}

type serverTest struct {
	name   string
	method string
	path   string
	body   string

	status      int
	contentType string
	expect      func(t *testing.T, body string)
}

func (st serverTest) run(t *testing.T, h http.Handler) {
	var body io.Reader
	if st.body != "" {
		body = strings.NewReader(st.body)
	}
	req := httptest.NewRequest(st.method, st.path, body)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	t.Logf("%v %v => %v %q", st.method, st.path, rec.Code, rec.Body.String())

	assert.Equal(t, st.status, rec.Code, "expected status")
	if st.contentType != "" {
		assert.Contains(t, rec.Header().Get("Content-Type"), st.contentType)
	}
	if st.expect != nil {
		st.expect(t, rec.Body.String())
	}
}

func bodyIs(want string) func(t *testing.T, body string) {
	return func(t *testing.T, body string) {
		assert.Equal(t, want, body)
	}
}

func bodyHas(want string) func(t *testing.T, body string) {
	return func(t *testing.T, body string) {
		assert.Contains(t, body, want)
	}
}

func jsonField(name, want string) func(t *testing.T, body string) {
	return func(t *testing.T, body string) {
		var obj map[string]any
		require.NoError(t, json.Unmarshal([]byte(body), &obj))
		assert.Contains(t, obj[name], want)
	}
}

func Test_Server(t *testing.T) {
	h := testServer(t)
	for _, st := range []serverTest{
		{
			name: "health", method: "GET", path: "/healthz",
			status: http.StatusOK, contentType: "application/json",
			expect: bodyHas(`"status":"ok"`),
		},
		{
			name: "rules", method: "GET", path: "/rules",
			status: http.StatusOK, contentType: "text/plain",
			expect: bodyHas("Rule 0 adj-n"),
		},
		{
			name: "transfer", method: "POST", path: "/transfer",
			body:   "^red<adj>/rojo<adj>$ ^car<n>/coche<n>$\n",
			status: http.StatusOK, contentType: "text/plain",
			expect: bodyIs("^coche<n>$ ^rojo<adj>$\n"),
		},
		{
			name: "transfer linear", method: "POST", path: "/transfer?linear=true&trace=1",
			body:   "^red<adj>/rojo<adj>$ ^car<n>/coche<n>$\n",
			status: http.StatusOK,
			expect: bodyIs("^coche<n>$ ^rojo<adj>$\n"),
		},
		{
			name: "transfer null flush", method: "POST", path: "/transfer?null_flush=true",
			body:   "^car<n>/coche<n>$\x00^red<adj>/rojo<adj>$\x00",
			status: http.StatusOK,
			expect: bodyIs("^coche<n>$\x00^rojo<adj>$\x00"),
		},
		{
			name: "transfer trees", method: "POST", path: "/transfer?trees=flat",
			body:   "^red<adj>/rojo<adj>$ ^car<n>/coche<n>$",
			status: http.StatusOK,
			expect: bodyIs("^NP<np>{^car<n>/coche<n>$ ^red<adj>/rojo<adj>$}$"),
		},
		{
			name: "bad flag", method: "POST", path: "/transfer?linear=maybe",
			body:   "^car<n>/coche<n>$",
			status: http.StatusBadRequest, contentType: "application/json",
			expect: jsonField("error", "invalid linear value"),
		},
		{
			name: "bad tree mode", method: "POST", path: "/transfer?trees=bush",
			body:   "^car<n>/coche<n>$",
			status: http.StatusBadRequest,
		},
		{
			name: "fault", method: "POST", path: "/transfer",
			body:   "^run<vblex>/correr<vblex>$",
			status: http.StatusUnprocessableEntity, contentType: "application/json",
			expect: jsonField("error", "stack underflow"),
		},
		{
			name: "not found", method: "GET", path: "/nope",
			status: http.StatusNotFound,
		},
		{
			name: "wrong method", method: "GET", path: "/transfer",
			status: http.StatusMethodNotAllowed,
		},
	} {
		t.Run(st.name, func(t *testing.T) { st.run(t, h) })
	}
}

func Test_Server_maxBody(t *testing.T) {
	h := testServer(t)
	h.MaxBody = 8
	serverTest{
		method: "POST", path: "/transfer",
		body:   strings.Repeat("^car<n>/coche<n>$ ", 10),
		status: http.StatusRequestEntityTooLarge,
	}.run(t, h)
}

func Test_Serve(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx, ln, testServer(t), time.Second) }()

	resp, err := http.Post("http://"+ln.Addr().String()+"/transfer", "text/plain",
		strings.NewReader("^red<adj>/rojo<adj>$ ^car<n>/coche<n>$"))
	require.NoError(t, err)
	out, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "^coche<n>$ ^rojo<adj>$", string(out))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
