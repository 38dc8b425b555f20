package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/born-ml/hetero/internal/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const copyManifest = `
name: copy
backends:
  - {id: A, device: CPU}
  - {id: B, device: Vulkan}
factories:
  - {id: fa, backend: A, map_unmap: true}
  - {id: fb, backend: B, map_unmap: %s}
layers:
  - {name: input, kind: Input, backend: A}
  - {name: x, op: Softmax, backend: A}
  - {name: y, op: Softmax, backend: B}
  - {name: output, kind: Output, backend: B}
connections:
  - input -> x
  - x -> y
  - y -> output
`

func manifestBody(mappable bool) string {
	v := "false"
	if mappable {
		v = "true"
	}
	return strings.Replace(copyManifest, "%s", v, 1)
}

func newServer(t *testing.T) (*httptest.Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	h, err := NewHandler(Config{ExportEnabled: true, Registry: reg})
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, reg
}

func post(t *testing.T, srv *httptest.Server, path, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/yaml", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestValidate(t *testing.T) {
	srv, _ := newServer(t)
	resp, data := post(t, srv, "/v1/validate", manifestBody(true))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var rep report.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, "copy", rep.Name)
	assert.Equal(t, 4, rep.Layers, "validation inserts nothing")
	assert.Equal(t, 1, rep.Result.Counts.Copy)
	assert.Nil(t, rep.Summary)
}

func TestOptimize(t *testing.T) {
	srv, reg := newServer(t)
	resp, data := post(t, srv, "/v1/optimize", manifestBody(true))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))

	var rep report.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, 5, rep.Layers)
	require.NotNil(t, rep.Summary)
	assert.Equal(t, 1, rep.Summary.Copies)

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "hetero_bridge_layers_inserted_total")
	assert.Contains(t, names, "hetero_edges_resolved_total")
}

func TestOptimize_Unresolvable(t *testing.T) {
	srv, _ := newServer(t)
	resp, data := post(t, srv, "/v1/optimize", manifestBody(false))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var rep report.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.True(t, rep.Result.HasError)
	assert.Equal(t, 4, rep.Layers, "nothing is inserted when resolution fails")
	assert.Nil(t, rep.Summary)
}

func TestBadManifest(t *testing.T) {
	srv, _ := newServer(t)
	tests := []struct {
		name string
		body string
	}{
		{"syntax", "layers: [\n"},
		{"unknown layer", "layers:\n  - {name: a, backend: CpuRef}\nconnections: [a -> ghost]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := post(t, srv, "/v1/validate", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var e errorResponse
			require.NoError(t, json.Unmarshal(data, &e))
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestMetricsAndHealth(t *testing.T) {
	srv, _ := newServer(t)
	post(t, srv, "/v1/validate", manifestBody(true))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `hetero_edges_resolved_total{strategy="CopyToTarget"} 1`)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newServer(t)
	resp, err := http.Get(srv.URL + "/v1/optimize")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
