package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	recorder := &Recorder{}
	scoped := NewScopedAPI("service", NewScopedAPI("search", recorder))

	scoped.ReportBroken("searcher.search", "keyword")
	scoped.ReportWarning("searcher.classify")
	scoped.ReportCount("keywords", 3)

	broken := recorder.Reports("broken")
	require.Len(t, broken, 1)
	require.Equal(t, "search: service: searcher.search", broken[0].ID)
	require.Equal(t, []any{"keyword"}, broken[0].Params)

	counts := recorder.Reports("count")
	require.Len(t, counts, 1)
	require.Equal(t, int64(3), counts[0].Count)

	require.Len(t, recorder.Reports(""), 3)
}

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	recorder := &Recorder{}
	client := resty.New()
	InstrumentResty(client, recorder)

	_, err := client.R().Get(server.URL)
	require.NoError(t, err)

	debug := recorder.Reports("debug")
	require.Len(t, debug, 2)
	require.Equal(t, report_resty_request, debug[0].ID)
	require.Equal(t, report_resty_response, debug[1].ID)
	require.Empty(t, recorder.Reports("broken"))

	server.Close()
	_, err = client.R().Get(server.URL)
	require.Error(t, err)
	broken := recorder.Reports("broken")
	require.Len(t, broken, 1)
	require.Equal(t, report_resty_response, broken[0].ID)
}
