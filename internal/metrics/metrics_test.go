// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.Identifiers(3)
	r.Request("efetch", nil)
	r.Request("efetch", errors.New("x"))
	r.Request("efetch", errors.New("y"))
	r.Retry("efetch", "http", 2)
	r.Skipped(UnitPage)
	r.Written(42)

	assert.Equal(t, 3.0, testutil.ToFloat64(r.identifiers))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.requests.WithLabelValues("efetch", OutcomeOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.requests.WithLabelValues("efetch", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.retries.WithLabelValues("efetch", "http")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.skipped.WithLabelValues(UnitPage)))
	assert.Equal(t, 42.0, testutil.ToFloat64(r.bytes))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Identifiers(1)
		r.Request("epost", nil)
		r.Retry("epost", "network", 2)
		r.Skipped(UnitBatch)
		r.Written(1)
	})
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.Identifiers(5)
	r.Skipped(UnitBatch)

	path := filepath.Join(t.TempDir(), "seqfetch.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "seqfetch_identifiers_total 5")
	assert.Contains(t, string(data), `seqfetch_skipped_total{unit="batch"} 1`)
}
