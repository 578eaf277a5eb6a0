package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formrunner/internal/attempt"
	"formrunner/internal/form"
)

func TestAssembleCountsFinalsOnly(t *testing.T) {
	attempts := []attempt.Result{
		{Website: "https://a.example", Try: 1, Outcome: attempt.OutcomeFailure, FieldsFilled: 2},
		{Website: "https://a.example", Try: 2, Outcome: attempt.OutcomeSuccess, Verified: true, FieldsFilled: 3,
			FillLog: []form.Outcome{{Website: "https://a.example", Kind: form.KindEmail, Status: form.StatusFilled}}},
		{Website: "https://b.example", Try: 1, Outcome: attempt.OutcomeNavigation, Error: "net::ERR_NAME_NOT_RESOLVED"},
	}
	finals := map[int]bool{1: true, 2: true}

	rep := Assemble("run-1", time.Now(), attempts, finals, false)

	assert.Equal(t, 2, rep.Summary.Total)
	assert.Equal(t, 1, rep.Summary.Successful)
	assert.Equal(t, 1, rep.Summary.Failed)
	assert.InDelta(t, 0.5, rep.Summary.SuccessRate, 1e-9)
	assert.Equal(t, 3, rep.Summary.TotalFieldsFilled)
	assert.Len(t, rep.Submissions, 3)
	assert.False(t, rep.Submissions[0].Final)
	assert.True(t, rep.Submissions[1].Final)
	assert.Len(t, rep.FieldLogs, 1)
}

func TestAssembleEmptyRun(t *testing.T) {
	rep := Assemble("run-2", time.Now(), nil, nil, true)
	assert.Zero(t, rep.Summary.Total)
	assert.Zero(t, rep.Summary.SuccessRate)
	assert.True(t, rep.Cancelled)
	assert.NotNil(t, rep.Submissions)
	assert.NotNil(t, rep.FieldLogs)
}

func TestWriteRoundTrip(t *testing.T) {
	rep := Assemble("run-3", time.Now(), []attempt.Result{
		{Website: "https://c.example", Try: 1, Outcome: attempt.OutcomeSuccess, Verified: true, Elapsed: 1500 * time.Millisecond, FieldsFilled: 4},
	}, map[int]bool{0: true}, false)

	var buf bytes.Buffer
	require.NoError(t, rep.Write(&buf))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-3", decoded["runId"])
	subs := decoded["submissions"].([]any)
	require.Len(t, subs, 1)
	sub := subs[0].(map[string]any)
	assert.Equal(t, float64(1500), sub["elapsedMs"])
	assert.Equal(t, "success", sub["outcome"])
}
