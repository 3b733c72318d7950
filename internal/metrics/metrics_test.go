package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_AllVariablesNonNil(t *testing.T) {
	t.Parallel()

	vars := []struct {
		name string
		val  any
	}{
		{"HTTPRequestsTotal", HTTPRequestsTotal},
		{"HTTPRequestLatency", HTTPRequestLatency},
		{"AuthAttemptsTotal", AuthAttemptsTotal},
		{"TxTransitionsTotal", TxTransitionsTotal},
		{"TxConfirmationsTotal", TxConfirmationsTotal},
		{"UpstreamCallsTotal", UpstreamCallsTotal},
		{"UpstreamLatency", UpstreamLatency},
		{"UpstreamRateLimitWaits", UpstreamRateLimitWaits},
		{"CircuitBreakerState", CircuitBreakerState},
	}
	for _, v := range vars {
		assert.NotNil(t, v.val, v.name)
	}
}

func TestTxTransitionsTotal_Increments(t *testing.T) {
	c := TxTransitionsTotal.WithLabelValues("test-chain", "PROPOSED")
	before := testutil.ToFloat64(c)
	c.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestClassifyError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("circuit breaker is open"), "circuit_open"},
		{errors.New("http status 429: slow down"), "rate_limited"},
		{errors.New("http status 502: bad gateway"), "server_error"},
		{fmt.Errorf("http request: %w", errors.New("dial tcp: connection refused")), "network_error"},
		{errors.New("http status 400: bad request"), "client_error"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyError(tc.err), "%v", tc.err)
	}
}
