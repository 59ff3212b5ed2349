package network

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/dmutils/internal/namespace"
	"github.com/specialistvlad/dmutils/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestHTTPRequest(t *testing.T) {
	// --- Arrange ---
	methods := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods <- r.Method
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "short and stout")
	}))
	defer srv.Close()

	mod := &Module{Client: srv.Client()}
	ns := testutil.NewNamespace(t, mod)
	defer mod.Close()

	// --- Act ---
	got := testutil.Invoke(t, ns, "http_request", namespace.NewCall(cty.StringVal(srv.URL)).
		WithNamed("method", cty.StringVal("post")))

	// --- Assert ---
	assert.Equal(t, http.MethodPost, <-methods)
	assert.True(t, got.GetAttr("status_code").Equals(cty.NumberIntVal(418)).True())
	assert.Equal(t, "short and stout", got.GetAttr("body").AsString())
}

func TestHTTPRequest_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	ns := testutil.NewNamespace(t, &Module{})
	_, err := ns.Invoke(context.Background(), "http_request", namespace.NewCall(cty.StringVal(url)))
	require.ErrorContains(t, err, "failed to execute request")
}

func TestCheckConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	ns := testutil.NewNamespace(t, &Module{Client: NewClient(5 * time.Second)})

	up := testutil.Invoke(t, ns, "check_connection", namespace.NewCall(cty.StringVal(srv.URL)))
	assert.True(t, up.GetAttr("reachable").True())
	assert.True(t, up.GetAttr("status_code").Equals(cty.NumberIntVal(204)).True())
	assert.Equal(t, srv.URL, up.GetAttr("url").AsString())

	srv.Close()
	down := testutil.Invoke(t, ns, "check_connection", namespace.NewCall(cty.StringVal(srv.URL), cty.NumberFloatVal(0.5)))
	assert.False(t, down.GetAttr("reachable").True())
	assert.True(t, down.GetAttr("status_code").Equals(cty.Zero).True())

	_, err := ns.Invoke(context.Background(), "check_connection", namespace.NewCall(cty.StringVal(srv.URL), cty.NumberIntVal(0)))
	require.ErrorContains(t, err, "timeout must be positive")
}

func TestUploadFile(t *testing.T) {
	// --- Arrange ---
	type received struct {
		method, contentType, body string
	}
	got := make(chan received, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- received{r.Method, r.Header.Get("Content-Type"), string(body)}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	root := testutil.WriteFiles(t, map[string]string{"report.json": `{"ok":true}`})
	ns := testutil.NewNamespace(t, &Module{Client: srv.Client()})

	// --- Act ---
	res := testutil.Invoke(t, ns, "upload_file", namespace.NewCall(
		cty.StringVal(filepath.Join(root, "report.json")),
		cty.StringVal(srv.URL+"/bucket/report.json?signature=abc"),
	))

	// --- Assert ---
	req := <-got
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "application/json", req.contentType)
	assert.Equal(t, `{"ok":true}`, req.body)
	assert.True(t, res.GetAttr("bytes").Equals(cty.NumberIntVal(11)).True())
	assert.True(t, res.GetAttr("status_code").Equals(cty.NumberIntVal(200)).True())
}

func TestUploadFile_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	root := testutil.WriteFiles(t, map[string]string{"a.bin": "x"})
	ns := testutil.NewNamespace(t, &Module{Client: srv.Client()})
	ctx, _ := testutil.Context(t)

	_, err := ns.Invoke(ctx, "upload_file", namespace.NewCall(cty.StringVal(filepath.Join(root, "a.bin")), cty.StringVal(srv.URL)))
	require.ErrorContains(t, err, "upload failed with status: 403 Forbidden")

	_, err = ns.Invoke(ctx, "upload_file", namespace.NewCall(cty.StringVal(filepath.Join(root, "missing")), cty.StringVal(srv.URL)))
	require.ErrorContains(t, err, "failed to open source file")
}
