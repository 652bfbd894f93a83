package bitget

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchHistoryParsesStringRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/mix/v1/market/candles", r.URL.Path)
		assert.Equal(t, "BTCUSDT_UMCBL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "3600", r.URL.Query().Get("granularity"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[
			["1700003600000","105","107","104","106","3","318"],
			["1700000000000","100","110.5","95","105.25","12.5","1300"],
			["bad","1","1","1","1","1","1"]
		]`))
	}))
	defer srv.Close()

	src := New(Config{RESTBaseURL: srv.URL})
	candles, err := src.FetchHistory(context.Background(), "btcusdt", "1H", 3)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(1700003600), candles[0].Time)
	assert.Equal(t, int64(1700000000), candles[1].Time)
	assert.Equal(t, 110.5, candles[1].High)
	assert.Equal(t, 12.5, candles[1].Volume)
}

func TestFetchHistoryErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") == "OBJ_UMCBL" {
			_, _ = w.Write([]byte(`{"code":"40017","msg":"param error"}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"40034","msg":"symbol does not exist"}`))
	}))
	defer srv.Close()

	src := New(Config{RESTBaseURL: srv.URL})
	_, err := src.FetchHistory(context.Background(), "NOPE", "1H", 10)
	require.ErrorContains(t, err, "bitget 400")

	_, err = src.FetchHistory(context.Background(), "OBJ", "1H", 10)
	require.ErrorContains(t, err, "unexpected response")

	_, err = src.FetchHistory(context.Background(), "BTCUSDT", "2H", 10)
	require.ErrorContains(t, err, "unsupported interval")
}

func TestContractSymbol(t *testing.T) {
	src := New(Config{})
	assert.Equal(t, "ETHUSDT_UMCBL", src.ContractSymbol(" ethusdt "))
	assert.Equal(t, "ETHUSDT_DMCBL", src.ContractSymbol("ETHUSDT_DMCBL"))
	assert.Equal(t, "", src.ContractSymbol(""))
}

func TestListInstrumentsFallsBackToV1(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/mix/market/contracts":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/api/mix/v1/market/contracts":
			assert.Equal(t, "umcbl", r.URL.Query().Get("productType"))
			_, _ = w.Write([]byte(`{"code":"00000","data":[
				{"symbol":"ETHUSDT_UMCBL","symbolName":"ETHUSDT","baseCoin":"ETH","quoteCoin":"USDT","symbolStatus":"normal"},
				{"symbol":"BTCUSDT_UMCBL","symbolName":"BTCUSDT","baseCoin":"BTC","quoteCoin":"USDT","symbolStatus":"normal"},
				{"symbol":"BTCUSDT_UMCBL","symbolName":"BTCUSDT","baseCoin":"BTC","quoteCoin":"USDT","symbolStatus":"normal"},
				{"symbol":"OLDUSDT_UMCBL","symbolName":"OLDUSDT","baseCoin":"OLD","quoteCoin":"USDT","symbolStatus":"off"}
			]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	list, err := New(Config{RESTBaseURL: srv.URL}).ListInstruments(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "BTCUSDT", list[0].Symbol)
	assert.Equal(t, "BTC/USDT", list[0].Name)
	assert.Equal(t, "ETHUSDT", list[1].Symbol)
}

func TestListInstrumentsV2(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/mix/market/contracts", r.URL.Path)
		assert.Equal(t, "usdt-futures", r.URL.Query().Get("productType"))
		_, _ = w.Write([]byte(`{"data":[{"symbol":"SOLUSDT","baseCoin":"SOL","quoteCoin":"USDT","symbolStatus":"listed"}]}`))
	}))
	defer srv.Close()

	list, err := New(Config{RESTBaseURL: srv.URL}).ListInstruments(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "SOLUSDT", list[0].Symbol)
	assert.Equal(t, "listed", list[0].Status)
}
