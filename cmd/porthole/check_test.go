package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"porthole/internal/release"
)

const latestPayload = `{
	"tag_name": "v1.4.0",
	"name": "Porthole 1.4.0",
	"body": "## Fixes\n- faster start",
	"html_url": "https://github.com/porthole-app/porthole/releases/tag/v1.4.0",
	"published_at": "2026-09-30T10:00:00Z"
}`

func releaseServer(t *testing.T, status int, body string) *release.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/porthole-app/porthole/releases/latest" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return release.NewClient(release.WithBaseURL(srv.URL))
}

type recordingProgress struct {
	stages  []string
	stopped bool
}

func (p *recordingProgress) Stage(msg string) { p.stages = append(p.stages, msg) }
func (p *recordingProgress) Stop()            { p.stopped = true }

func baseReport(current string) checkReport {
	return checkReport{Repository: "porthole-app/porthole", Strategy: "managed", Current: current}
}

func TestRunCheckTextReportsUpdate(t *testing.T) {
	client := releaseServer(t, http.StatusOK, latestPayload)
	spin := &recordingProgress{}
	var out bytes.Buffer

	err := runCheck(context.Background(), &out, client, baseReport("v1.3.2"), formatText, spin)
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "Latest release:   v1.4.0 (published 2026-09-30)")
	assert.Contains(t, got, "Update available: yes")
	assert.Contains(t, got, "Download:         https://github.com/porthole-app/porthole/releases/tag/v1.4.0")
	assert.NotContains(t, got, "faster start", "text output leaves release notes out")
	assert.True(t, spin.stopped, "spinner must be stopped before printing")
	require.Len(t, spin.stages, 1)
	assert.Contains(t, spin.stages[0], "porthole-app/porthole")
}

func TestRunCheckTextUpToDate(t *testing.T) {
	client := releaseServer(t, http.StatusOK, latestPayload)
	var out bytes.Buffer

	require.NoError(t, runCheck(context.Background(), &out, client, baseReport("1.4.0"), formatText, nil))

	assert.Contains(t, out.String(), "Update available: no, you are up to date")
	assert.NotContains(t, out.String(), "Download:")
}

func TestRunCheckJSON(t *testing.T) {
	client := releaseServer(t, http.StatusOK, latestPayload)
	var out bytes.Buffer

	require.NoError(t, runCheck(context.Background(), &out, client, baseReport("v1.3.2"), formatJSON, nil))

	var got checkReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "v1.4.0", got.Latest)
	assert.True(t, got.UpdateAvailable)
	assert.Equal(t, "## Fixes\n- faster start", got.Notes)
	require.NotNil(t, got.PublishedAt)
	assert.Equal(t, 2026, got.PublishedAt.Year())
}

func TestRunCheckYAML(t *testing.T) {
	client := releaseServer(t, http.StatusOK, latestPayload)
	var out bytes.Buffer

	require.NoError(t, runCheck(context.Background(), &out, client, baseReport("v2.0.0"), formatYAML, nil))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "v1.4.0", got["latest"])
	assert.Equal(t, false, got["update_available"])
	assert.Equal(t, "managed", got["strategy"])
}

func TestRunCheckKeepsPresetDownloadPage(t *testing.T) {
	client := releaseServer(t, http.StatusOK, `{"tag_name": "v9.0.0", "html_url": "https://github.com/elsewhere"}`)
	report := baseReport("v1.0.0")
	report.DownloadPage = "https://ghe.corp/porthole-app/porthole/releases/latest"
	var out bytes.Buffer

	require.NoError(t, runCheck(context.Background(), &out, client, report, formatJSON, nil))

	var got checkReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "https://ghe.corp/porthole-app/porthole/releases/latest", got.DownloadPage)
	assert.Nil(t, got.PublishedAt)
}

func TestCheckCommandLinksConfiguredHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/porthole-app/porthole/releases/latest" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"tag_name": "v9.0.0"}`))
	}))
	defer srv.Close()
	t.Setenv("PH_UPDATE_API_URL", srv.URL)

	out, err := execute(t, "check", "--repo", "porthole-app/porthole", "-o", "json")
	require.NoError(t, err)

	var got checkReport
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, srv.URL+"/porthole-app/porthole/releases/latest", got.DownloadPage)
}

func TestRunCheckReportsCodedFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
	}{
		{name: "missing release", status: http.StatusNotFound, body: `{"message":"Not Found"}`, code: "protocol_failure"},
		{name: "garbage body", status: http.StatusOK, body: `not json`, code: "protocol_failure"},
		{name: "no tag", status: http.StatusOK, body: `{"body":"x"}`, code: "protocol_failure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := releaseServer(t, tt.status, tt.body)
			spin := &recordingProgress{}
			var out bytes.Buffer

			err := runCheck(context.Background(), &out, client, baseReport("v1.0.0"), formatText, spin)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.code)
			assert.Empty(t, out.String())
			assert.True(t, spin.stopped)
		})
	}
}

func TestRunCheckTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	client := release.NewClient(release.WithBaseURL(url))

	err := runCheck(context.Background(), &bytes.Buffer{}, client, baseReport("v1.0.0"), formatJSON, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "transport_failure"), err.Error())
}

func TestValidateFormat(t *testing.T) {
	for _, f := range []string{formatText, formatJSON, formatYAML} {
		assert.NoError(t, validateFormat(f), f)
	}
	assert.Error(t, validateFormat("xml"))
	assert.Error(t, validateFormat(""))
}
