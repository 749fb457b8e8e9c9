// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/seqfetch/internal/accession"
	"github.com/pdiddy/seqfetch/internal/fetch"
)

const ePostReply = `<?xml version="1.0" encoding="UTF-8" ?>
<ePostResult><QueryKey>1</QueryKey><WebEnv>MCID_test</WebEnv></ePostResult>`

// fakeEutils serves epost and efetch, counting every request.
type fakeEutils struct {
	*httptest.Server
	calls atomic.Int32
}

func newFakeEutils(t *testing.T) *fakeEutils {
	t.Helper()
	f := &fakeEutils{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		switch r.URL.Path {
		case "/epost.fcgi":
			fmt.Fprint(w, ePostReply)
		case "/efetch.fcgi":
			q := r.URL.Query()
			fmt.Fprintf(w, ">page retstart=%s retmax=%s\nACGT\n", q.Get("retstart"), q.Get("retmax"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

// maxRun bounds a command run against the test server. Pacing and backoff
// are disabled, so anything close to this means a wait was not.
const maxRun = 2 * time.Second

// execute runs the root command with fresh flag values and a test endpoint.
func execute(t *testing.T, baseURL string, args ...string) (string, error) {
	t.Helper()
	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})

	viper.Set("base_url", baseURL)
	viper.Set("page_delay", -time.Nanosecond)
	viper.Set("batch_delay", -time.Nanosecond)
	t.Cleanup(func() {
		viper.Set("base_url", "")
		viper.Set("page_delay", time.Duration(0))
		viper.Set("batch_delay", time.Duration(0))
	})

	var stderr bytes.Buffer
	rootCmd.SetOut(&stderr)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stderr.String(), err
}

func TestMissingInputIsFatal(t *testing.T) {
	srv := newFakeEutils(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "out.fasta")

	logs, err := execute(t, srv.URL,
		"-i", filepath.Join(dir, "missing.txt"),
		"-o", out,
		"--email", "me@example.org",
		"--api-key", "k",
		"--log-format", "json",
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, accession.ErrInputNotFound)
	assert.NoFileExists(t, out)
	assert.Zero(t, srv.calls.Load())
	assert.Contains(t, logs, "input file not found")
}

func TestDownloadEndToEnd(t *testing.T) {
	srv := newFakeEutils(t)
	dir := t.TempDir()
	in := filepath.Join(dir, "ids.txt")
	out := filepath.Join(dir, "out.fasta")
	summary := filepath.Join(dir, "summary.yaml")
	prom := filepath.Join(dir, "seqfetch.prom")
	require.NoError(t, os.WriteFile(in, []byte("AB123456\nAB123457\n\nAB123458\n"), 0o644))

	start := time.Now()
	_, err := execute(t, srv.URL,
		"-i", in,
		"-o", out,
		"--email", "me@example.org",
		"--api-key", "k",
		"--summary", summary,
		"--metrics-file", prom,
		"--log-format", "json",
	)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), maxRun)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, ">page retstart=0 retmax=3\nACGT\n", string(data))
	assert.Equal(t, int32(2), srv.calls.Load())

	sum, err := fetch.ReadSummary(summary)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Identifiers)
	assert.Equal(t, 1, sum.PagesWritten)
	assert.Equal(t, out, sum.Output)
	assert.True(t, sum.Complete())

	metricsText, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText), "seqfetch_identifiers_total 3")
}

func TestRegistrationFailureStillExitsCleanly(t *testing.T) {
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/efetch.fcgi" {
			fetches.Add(1)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	viper.Set("register_backoff_step", -time.Nanosecond)
	t.Cleanup(func() { viper.Set("register_backoff_step", time.Duration(0)) })

	dir := t.TempDir()
	in := filepath.Join(dir, "ids.txt")
	out := filepath.Join(dir, "out.fasta")
	require.NoError(t, os.WriteFile(in, []byte("AB1\n"), 0o644))

	start := time.Now()
	_, err := execute(t, srv.URL, "-i", in, "-o", out, "--email", "me@example.org", "--api-key", "k", "--log-format", "json")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), maxRun, "registration backoff was not disabled")
	assert.Zero(t, fetches.Load())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestMissingEmail(t *testing.T) {
	t.Setenv("SEQFETCH_EMAIL", "")
	dir := t.TempDir()
	in := filepath.Join(dir, "ids.txt")
	require.NoError(t, os.WriteFile(in, []byte("AB1\n"), 0o644))

	_, err := execute(t, "", "-i", in, "-o", filepath.Join(dir, "out.fasta"), "--api-key", "k", "--log-format", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email address is required")
}

func TestMissingRequiredFlag(t *testing.T) {
	_, err := execute(t, "", "-o", "x.fasta", "--email", "a@b", "--api-key", "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input")
}

func TestCredentialFlagsAreMarkedRequired(t *testing.T) {
	for _, name := range []string{"email", "api-key"} {
		f := rootCmd.Flags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Contains(t, f.Usage, "(required", name)
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "seqfetch dev\n", out)
}
