package audit_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/ksi/internal/audit"
)

func TestRelativeTime(testInstance *testing.T) {
	now := testNow()

	testCases := []struct {
		name     string
		elapsed  time.Duration
		expected string
	}{
		{name: "seconds", elapsed: 59 * time.Second, expected: "Just now"},
		{name: "future", elapsed: -time.Minute, expected: "Just now"},
		{name: "one_minute", elapsed: 61 * time.Second, expected: "1 minute ago"},
		{name: "minutes", elapsed: 59 * time.Minute, expected: "59 minutes ago"},
		{name: "one_hour", elapsed: 119 * time.Minute, expected: "1 hour ago"},
		{name: "hours", elapsed: 23*time.Hour + 59*time.Minute, expected: "23 hours ago"},
		{name: "older_than_a_day", elapsed: 24 * time.Hour, expected: "5/31/2025"},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, audit.RelativeTime(now.Add(-testCase.elapsed), now, time.UTC))
		})
	}
}

func TestWriteEntries(testInstance *testing.T) {
	now := time.Date(2025, time.June, 1, 14, 35, 9, 0, time.UTC)

	testInstance.Run("renders_entries", func(testInstance *testing.T) {
		outputBuffer := &bytes.Buffer{}
		entries := exportFixture()
		require.NoError(testInstance, audit.WriteEntries(outputBuffer, entries[:2], len(entries), now, time.UTC))

		rendered := outputBuffer.String()
		require.Contains(testInstance, rendered, "Audit Log (3 entries)")
		require.Contains(testInstance, rendered, "Last change: 30 minutes ago")
		require.Contains(testInstance, rendered, "Status Changed")
		require.Contains(testInstance, rendered, "KSI-CNA / CNA-01")
		require.Contains(testInstance, rendered, "Status: not_started → in_progress")
		require.Contains(testInstance, rendered, "5 hours ago")
		require.Contains(testInstance, rendered, "Evidence text updated")
	})

	testInstance.Run("empty_selection", func(testInstance *testing.T) {
		outputBuffer := &bytes.Buffer{}
		require.NoError(testInstance, audit.WriteEntries(outputBuffer, nil, 4, now, time.UTC))
		require.Equal(testInstance, "Audit Log (4 entries)\nNo audit log entries found\n", outputBuffer.String())
	})
}
