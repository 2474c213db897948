package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/CengizhanKARAGOZ/lead-finder/internal/leads"
)

var resultCols = []string{
	"business_id", "name", "city", "keyword", "address", "phone", "email",
	"website_id", "domain", "homepage_url", "emails_csv", "phones_csv",
	"score", "reasons_json", "computed_at",
}

func TestListResults(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	at := time.Date(2025, 10, 20, 14, 0, 0, 0, time.UTC)
	score := 15
	reasons := `["HTTPS detected (+10)","Title detected (+5)"]`

	mock.ExpectQuery("SELECT count").
		WithArgs("Ankara", "").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("DISTINCT ON").
		WithArgs("Ankara", "", 2, 2).
		WillReturnRows(pgxmock.NewRows(resultCols).
			AddRow(int64(1), "Acme", "Ankara", "parke", "", "", "",
				int64(2), "acme.com", "https://acme.com", "", "",
				&score, &reasons, &at).
			AddRow(int64(3), "Beta", "Ankara", "parke", "", "", "",
				int64(1), "beta.com", "https://beta.com", "", "",
				(*int)(nil), (*string)(nil), (*time.Time)(nil)))

	page, err := store.ListResults(context.Background(), leads.ResultQuery{
		Page: 2, PageSize: 2, PoorThreshold: 20, City: "Ankara",
	})
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)
	require.Equal(t, 2, page.Page)
	require.Equal(t, 2, page.PageSize)
	require.Len(t, page.Items, 2)

	require.Equal(t, 15, *page.Items[0].Score)
	require.Equal(t, leads.QualityPoor, page.Items[0].Quality)
	require.Equal(t, reasons, page.Items[0].ReasonsJSON)
	require.Equal(t, at, *page.Items[0].ComputedAt)

	require.Nil(t, page.Items[1].Score)
	require.Nil(t, page.Items[1].ComputedAt)
	require.Equal(t, leads.QualityUnknown, page.Items[1].Quality)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	mock.ExpectQuery("DISTINCT ON").
		WithArgs(20).
		WillReturnRows(pgxmock.NewRows([]string{"total", "with_score", "poor"}).AddRow(10, 7, 3))

	got, err := store.Summarize(context.Background(), 20)
	require.NoError(t, err)
	require.Equal(t, leads.Summary{
		TotalWebsites: 10, WithScore: 7, OK: 4, Poor: 3, Unknown: 3, PoorThreshold: 20,
	}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}
