package eastmoney

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecid(t *testing.T) {
	cases := map[string]string{
		"600519":   "1.600519",
		"000001":   "0.000001",
		"SH600519": "1.600519",
		"sz000001": "0.000001",
		"sh000001": "1.000001",
		"1.601318": "1.601318",
		"0.300750": "0.300750",
	}
	for in, want := range cases {
		got, ok := Secid(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "AAPL", "60051", "2.600519"} {
		_, ok := Secid(bad)
		assert.False(t, ok, bad)
	}
}

func TestDisplaySymbol(t *testing.T) {
	assert.Equal(t, "SH600519", DisplaySymbol("1.600519"))
	assert.Equal(t, "SZ000001", DisplaySymbol("0.000001"))
}

func TestFetchHistoryParsesBeijingRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/qt/stock/kline/get", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "1.600519", q.Get("secid"))
		assert.Equal(t, "101", q.Get("klt"))
		assert.Equal(t, "1", q.Get("fqt"))
		assert.Equal(t, "20500101", q.Get("end"))
		assert.Equal(t, "2", q.Get("lmt"))
		assert.Equal(t, "https://quote.eastmoney.com", r.Header.Get("Referer"))
		_, _ = w.Write([]byte(`{"data":{"code":"600519","klines":[
			"2023-11-15,1800.00,1810.50,1820.00,1790.00,12345,2.2e9",
			"2023-11-15 14:55,1805.00,1808.00,1809.00,1804.00,321,5.8e7",
			"broken-row"
		]}}`))
	}))
	defer srv.Close()

	src := New(Config{RESTBaseURL: srv.URL})
	candles, err := src.FetchHistory(context.Background(), "SH600519", "1D", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)

	daily := candles[0]
	assert.Equal(t, int64(1700031600), daily.Time)
	assert.Equal(t, 1800.0, daily.Open)
	assert.Equal(t, 1810.5, daily.Close)
	assert.Equal(t, 1820.0, daily.High)
	assert.Equal(t, 1790.0, daily.Low)
	assert.Equal(t, 12345.0, daily.Volume)

	assert.Equal(t, int64(1700031300), candles[1].Time)
}

func TestFetchHistoryEmptyAndUnsupported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null}`))
	}))
	defer srv.Close()

	src := New(Config{RESTBaseURL: srv.URL})
	_, err := src.FetchHistory(context.Background(), "600519", "1D", 10)
	require.ErrorContains(t, err, "empty klines")

	_, err = src.FetchHistory(context.Background(), "600519", "4H", 10)
	require.ErrorContains(t, err, "unsupported interval")

	_, err = src.FetchHistory(context.Background(), "AAPL", "1D", 10)
	require.ErrorContains(t, err, "secid")
}

func TestListInstruments(t *testing.T) {
	list, err := New(Config{}).ListInstruments(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, list)
	assert.Equal(t, "SH600519", list[0].Symbol)
	assert.Equal(t, "1.600519", list[0].Meta["secid"])
	assert.Equal(t, Name, list[0].Source)
}
