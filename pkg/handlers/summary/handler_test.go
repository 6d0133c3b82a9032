package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/de-tools/umami-digest/pkg/models/api"
	"github.com/de-tools/umami-digest/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Summary(ctx context.Context, day string) (*domain.SummaryDocument, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SummaryDocument), args.Error(1)
}

func (m *mockService) FunnelReports(ctx context.Context) ([]domain.FunnelReportRef, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FunnelReportRef), args.Error(1)
}

func testDocument() *domain.SummaryDocument {
	start := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	return &domain.SummaryDocument{
		Provider: domain.ProviderName,
		Website:  domain.WebsiteInfo{ID: "site-1", Name: "Docs"},
		Metrics:  domain.BasicMetrics{Visitors: 5, Visits: 6, TotalTimeSeconds: 60},
		Window:   domain.TimeWindow{Day: "2025-03-10", Timezone: "UTC", LocalStart: start, LocalEnd: start.AddDate(0, 0, 1)},
	}
}

func TestGetSummary(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		day            string
		result         *domain.SummaryDocument
		err            error
		expectedStatus int
		contentType    string
		check          func(t *testing.T, body []byte)
	}{
		{
			name:           "json by default",
			query:          "?date=2025-03-10",
			day:            "2025-03-10",
			result:         testDocument(),
			expectedStatus: http.StatusOK,
			contentType:    "application/json",
			check: func(t *testing.T, body []byte) {
				var doc api.Summary
				require.NoError(t, json.Unmarshal(body, &doc))
				assert.Equal(t, "2025-03-10", doc.Date)
				assert.Equal(t, int64(5), doc.BasicData.Visitors)
			},
		},
		{
			name:           "markdown",
			query:          "?format=md",
			day:            "",
			result:         testDocument(),
			expectedStatus: http.StatusOK,
			contentType:    "text/markdown; charset=utf-8",
			check: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), "# Umami Daily Summary")
			},
		},
		{
			name:           "invalid date",
			query:          "?date=yesterdayish",
			day:            "yesterdayish",
			err:            &domain.ConfigError{Field: "date", Msg: "invalid date"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "upstream failure",
			query: "?date=2025-03-10",
			day:   "2025-03-10",
			err: fmt.Errorf("failed to fetch website: %w",
				&domain.APIError{Method: http.MethodGet, URL: "https://umami/websites/x", Status: 401}),
			expectedStatus: http.StatusBadGateway,
		},
		{
			name:           "unexpected failure",
			query:          "",
			day:            "",
			err:            errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mockService)
			if tc.result != nil {
				svc.On("Summary", mock.Anything, tc.day).Return(tc.result, nil)
			} else {
				svc.On("Summary", mock.Anything, tc.day).Return(nil, tc.err)
			}

			rec := httptest.NewRecorder()
			NewHandler(svc).GetSummary(rec, httptest.NewRequest(http.MethodGet, "/api/v1/summary"+tc.query, nil))

			assert.Equal(t, tc.expectedStatus, rec.Code)
			if tc.contentType != "" {
				assert.Equal(t, tc.contentType, rec.Header().Get("Content-Type"))
			}
			if tc.check != nil {
				tc.check(t, rec.Body.Bytes())
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestGetSummary_InvalidFormat(t *testing.T) {
	svc := new(mockService)

	rec := httptest.NewRecorder()
	NewHandler(svc).GetSummary(rec, httptest.NewRequest(http.MethodGet, "/api/v1/summary?format=xml", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid 'format'. Expected one of: json, markdown\n", rec.Body.String())
	svc.AssertNotCalled(t, "Summary", mock.Anything, mock.Anything)
}

func TestListFunnels(t *testing.T) {
	svc := new(mockService)
	svc.On("FunnelReports", mock.Anything).Return([]domain.FunnelReportRef{
		{ID: "r-1", Name: "pricing", Steps: json.RawMessage(`[{"type":"url","value":"/pricing"}]`)},
	}, nil)

	rec := httptest.NewRecorder()
	NewHandler(svc).ListFunnels(rec, httptest.NewRequest(http.MethodGet, "/api/v1/funnels", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []api.FunnelReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []api.FunnelReport{{ID: "r-1", Name: "pricing", StepCount: 1}}, got)
}
