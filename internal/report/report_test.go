package report_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/temirov/ksi/internal/catalog"
	"github.com/temirov/ksi/internal/report"
)

func reportFixture() catalog.Data {
	monitoring := true
	return catalog.Data{
		Version:       "25.05B",
		EffectiveDate: "June 1, 2025",
		ImpactLevel:   "Low",
		Categories: []catalog.Category{
			{
				ID:        "cna",
				Code:      "KSI-CNA",
				Name:      "Cloud Native Architecture",
				Objective: "Leverage cloud-native design",
				Items: []catalog.Item{
					{
						ID:             "cna-01",
						Code:           "CNA-01",
						Title:          "Limit traffic",
						Checklist:      []string{"segment"},
						CompletedItems: []bool{true},
						Status:         catalog.CompletionStatusComplete,
						Evidence:       "Segmented VPCs",
						Documents: []catalog.Document{
							{ID: "1748617445000-0", Name: "network.pdf", Size: 12, Type: "application/pdf", UploadedAt: "2025-05-30T15:04:05.000Z"},
						},
						EvidenceRequirements: []catalog.EvidenceRequirement{
							{Type: "Network Diagram", CollectionMethod: "Manual", Repository: "Confluence"},
						},
						SuccessMetrics:       []string{"Zero unauthorized inbound traffic"},
						ContinuousMonitoring: &monitoring,
						ControlReferences:    []string{"SC-7", "AC-4"},
					},
					{
						ID:             "cna-02",
						Code:           "CNA-02",
						Title:          "Minimize attack surface",
						Checklist:      []string{"iam", "subnets"},
						CompletedItems: []bool{true, false},
						Status:         catalog.CompletionStatusInProgress,
					},
				},
			},
			{
				ID:        "iam",
				Code:      "KSI-IAM",
				Name:      "Identity and Access Management",
				Objective: "Protect identities",
				Items: []catalog.Item{
					{
						ID:             "iam-01",
						Code:           "IAM-01",
						Title:          "Phishing-resistant MFA",
						Checklist:      []string{"mfa"},
						CompletedItems: []bool{false},
						Status:         catalog.CompletionStatusNotStarted,
					},
				},
			},
		},
	}
}

func reportTime() time.Time {
	return time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
}

func TestWriteMarkdownMatchesGolden(testInstance *testing.T) {
	outputBuffer := &bytes.Buffer{}
	require.NoError(testInstance, report.WriteMarkdown(outputBuffer, reportFixture(), reportTime(), time.UTC))

	golden := goldie.New(testInstance,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	golden.Assert(testInstance, "progress_report_md", outputBuffer.Bytes())
}

func TestWriteMarkdownInitialCatalog(testInstance *testing.T) {
	initialData, initialError := catalog.InitialData()
	require.NoError(testInstance, initialError)

	outputBuffer := &bytes.Buffer{}
	require.NoError(testInstance, report.WriteMarkdown(outputBuffer, initialData, reportTime(), time.UTC))

	output := outputBuffer.String()
	require.Contains(testInstance, output, "Overall Completion: 0.0% (0/51 KSIs)")
	require.Equal(testInstance, 10, strings.Count(output, "\n### KSI-"))
	require.Equal(testInstance, 11, strings.Count(output, "⚡ Continuous Monitoring Enabled"))
}

func TestWriteJSONIndentsWithTwoSpaces(testInstance *testing.T) {
	tree := reportFixture()
	tree.Categories[0].Items[1].Evidence = "<allow> & deny"

	outputBuffer := &bytes.Buffer{}
	require.NoError(testInstance, report.WriteJSON(outputBuffer, tree))

	output := outputBuffer.String()
	require.True(testInstance, strings.HasPrefix(output, "{\n  \"version\": \"25.05B\",\n  \"effectiveDate\": \"June 1, 2025\","))
	require.Contains(testInstance, output, "\"evidence\": \"<allow> & deny\"")
	require.Contains(testInstance, output, "\"nistControls\": [\n")

	var decoded catalog.Data
	require.NoError(testInstance, json.Unmarshal(outputBuffer.Bytes(), &decoded))
	require.Equal(testInstance, tree, decoded)
}

func TestSummarize(testInstance *testing.T) {
	summary := report.Summarize(reportFixture(), report.DefaultCriticalItems)

	require.Equal(testInstance, 3, summary.Total)
	require.Equal(testInstance, 1, summary.Completed)
	require.Equal(testInstance, 1, summary.InProgress)
	require.Equal(testInstance, 1, summary.NotStarted)
	require.InDelta(testInstance, 33.333, summary.CompletionPercentage, 0.001)
	require.Equal(testInstance, []report.CategoryProgress{
		{Code: "KSI-CNA", Name: "Cloud Native Architecture", Completed: 1, Total: 2, CompletionPercentage: 50},
		{Code: "KSI-IAM", Name: "Identity and Access Management", Completed: 0, Total: 1, CompletionPercentage: 0},
	}, summary.Categories)
	require.Equal(testInstance, []report.CriticalItem{
		{Code: "IAM-01", Title: "Phishing-resistant MFA", Status: catalog.CompletionStatusNotStarted, CategoryName: "Identity and Access Management"},
	}, summary.CriticalItems)
}

func TestSummarizeEmptyTree(testInstance *testing.T) {
	summary := report.Summarize(catalog.Data{}, nil)
	require.Zero(testInstance, summary.Total)
	require.Zero(testInstance, summary.CompletionPercentage)
	require.Empty(testInstance, summary.CriticalItems)
}

func TestWriteSummary(testInstance *testing.T) {
	testCases := []struct {
		name             string
		criticalItems    []string
		expectedContains []string
	}{
		{
			name:          "critical_items_outstanding",
			criticalItems: report.DefaultCriticalItems,
			expectedContains: []string{
				"FedRAMP 20x KSI Compliance Dashboard",
				"Version: 25.05B  Effective: June 1, 2025  Impact Level: Low",
				"Overall Completion: 33.3% (1/3 KSIs)",
				"Complete: 1  In Progress: 1  Not Started: 1",
				"Critical Path Items Requiring Attention",
				"○ IAM-01",
			},
		},
		{
			name:             "critical_items_complete",
			criticalItems:    []string{"cna-01"},
			expectedContains: []string{"All critical path items are complete."},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			tree := reportFixture()
			outputBuffer := &bytes.Buffer{}
			require.NoError(testInstance, report.WriteSummary(outputBuffer, tree, report.Summarize(tree, testCase.criticalItems)))
			for _, expected := range testCase.expectedContains {
				require.Contains(testInstance, outputBuffer.String(), expected)
			}
		})
	}
}

func TestFileNames(testInstance *testing.T) {
	now := time.Date(2025, time.June, 1, 23, 30, 0, 0, time.FixedZone("PDT", -7*60*60))
	require.Equal(testInstance, "FedRAMP-20x-KSI-Report-2025-06-02.md", report.MarkdownFileName(now))
	require.Equal(testInstance, "FedRAMP-20x-KSI-Data-2025-06-02.json", report.JSONFileName(now))
}

func TestConfigurationSanitize(testInstance *testing.T) {
	require.Equal(testInstance, report.DefaultConfiguration(), report.Configuration{}.Sanitize())

	sanitized := report.Configuration{OutputDirectory: " reports ", CriticalItems: []string{" IAM-01 ", ""}}.Sanitize()
	require.Equal(testInstance, "reports", sanitized.OutputDirectory)
	require.Equal(testInstance, []string{"IAM-01"}, sanitized.CriticalItems)
}
