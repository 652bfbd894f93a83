package gate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	src, err := New(Config{RESTBaseURL: srv.URL})
	require.NoError(t, err)
	return src
}

func TestFetchHistoryUsesContractAndInterval(t *testing.T) {
	var contract, interval, limit string
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/futures/usdt/candlesticks", r.URL.Path)
		contract = r.URL.Query().Get("contract")
		interval = r.URL.Query().Get("interval")
		limit = r.URL.Query().Get("limit")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"t":1700000000,"v":120,"c":"105.25","h":"110.5","l":"95","o":"100","sum":"1300"},
			{"t":1700086400,"v":30,"c":"106","h":"107","l":"104","o":"105.25","sum":"318"}
		]`))
	})

	candles, err := src.FetchHistory(context.Background(), "btcusdt", "1W", 2)
	require.NoError(t, err)
	assert.Equal(t, "BTC_USDT", contract)
	assert.Equal(t, "7d", interval)
	assert.Equal(t, "2", limit)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(1700000000), candles[0].Time)
	assert.Equal(t, 100.0, candles[0].Open)
	assert.Equal(t, 110.5, candles[0].High)
	assert.Equal(t, 95.0, candles[0].Low)
	assert.Equal(t, 105.25, candles[0].Close)
	assert.Equal(t, 1300.0, candles[0].Volume)
}

func TestFetchHistoryRejectsUnsupportedInterval(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	})
	_, err := src.FetchHistory(context.Background(), "BTCUSDT", "3m", 10)
	assert.ErrorContains(t, err, "unsupported interval")
	_, err = src.FetchHistory(context.Background(), "", "1H", 10)
	assert.Error(t, err)
}

func TestFetchHistoryPropagatesHTTPError(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"label":"INVALID_PARAM_VALUE","message":"bad contract"}`))
	})
	_, err := src.FetchHistory(context.Background(), "NOPEUSDT", "1H", 10)
	assert.Error(t, err)
}

func TestListInstrumentsSkipsDelisting(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/futures/usdt/contracts", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"name":"ETH_USDT","type":"direct","in_delisting":false},
			{"name":"LUNA_USDT","type":"direct","in_delisting":true},
			{"name":"BTC_USDT","type":"direct","in_delisting":false}
		]`))
	})

	list, err := src.ListInstruments(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "BTCUSDT", list[0].Symbol)
	assert.Equal(t, "BTC/USDT", list[0].Name)
	assert.Equal(t, "BTC_USDT", list[0].Meta["contract"])
	assert.Equal(t, Name, list[1].Source)
	assert.Equal(t, "ETHUSDT", list[1].Symbol)
}

func TestContractName(t *testing.T) {
	cases := map[string]string{
		"btcusdt":  "BTC_USDT",
		"BTC/USDT": "BTC_USDT",
		"eth-usdt": "ETH_USDT",
		"BTC_USDT": "BTC_USDT",
		"BTCUSD":   "BTC_USD",
		"USDT":     "USDT",
		"  ":       "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ContractName(in), in)
	}
}
