// Package chart 用 go-echarts 把 K 线、指标与回测结果渲染成 HTML 页面。
package chart

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"chartlab/internal/backtest"
	"chartlab/internal/indicator"
	"chartlab/internal/market"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorBull          = "#34d399"
	colorBear          = "#f87171"
	colorVolume        = "#a78bfa"
	colorEquity        = "#fbbf24"

	chartWidthPx   = 1600
	klineHeightPx  = 600
	panelHeightPx  = 260
	equityHeightPx = 300

	valueDecimals = 8
)

var palette = []string{"#3b82f6", "#fbbf24", "#f472b6", "#22d3ee", "#fb7185", "#a3e635"}

// Line 是一条与 K 线逐下标对齐的指标线。
type Line struct {
	Name   string
	Values indicator.Series
	Color  string
}

// Input 描述一页图表。Overlays 叠加在价格上，Panels 画在独立副图里。
type Input struct {
	Symbol   string
	Interval string
	Candles  []market.Candle
	Overlays []Line
	Panels   []Line
	Markers  []backtest.Marker
	Equity   []backtest.EquityPoint
	Subtitle string
}

// Render 把页面写入 w。
func Render(w io.Writer, in Input) error {
	if len(in.Candles) == 0 {
		return fmt.Errorf("no candles to render for %s", in.Symbol)
	}
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.PageTitle = title(in)

	xAxis := buildXAxis(in.Candles, in.Interval)
	kline := buildKline(in, xAxis)
	page.AddCharts(kline)
	if hasVolume(in.Candles) {
		page.AddCharts(buildVolumeChart(xAxis, in.Candles))
	}
	if len(in.Panels) > 0 {
		page.AddCharts(buildPanel(xAxis, in.Panels))
	}
	if len(in.Equity) > 0 {
		page.AddCharts(buildEquityChart(in.Equity, in.Interval))
	}
	return page.Render(w)
}

// HTML 返回渲染好的页面字节。
func HTML(in Input) ([]byte, error) {
	var buf bytes.Buffer
	if err := Render(&buf, in); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func title(in Input) string {
	return strings.TrimSpace(fmt.Sprintf("%s %s", strings.ToUpper(in.Symbol), in.Interval))
}

func baseInit(height int) opts.Initialization {
	return opts.Initialization{
		Theme:           types.ThemeWesteros,
		Width:           fmt.Sprintf("%dpx", chartWidthPx),
		Height:          fmt.Sprintf("%dpx", height),
		BackgroundColor: colorBackground,
	}
}

func buildKline(in Input, xAxis []string) *charts.Kline {
	minPrice, maxPrice := priceBounds(in.Candles)
	padding := (maxPrice - minPrice) * 0.05
	if padding <= 0 {
		padding = math.Max(1e-8, math.Abs(maxPrice)*0.01)
	}
	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(baseInit(klineHeightPx)),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTitleOpts(opts.Title{
			Title:         title(in),
			Subtitle:      in.Subtitle,
			Left:          "left",
			Top:           "10",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			Min:       round(minPrice-padding, valueDecimals),
			Max:       round(maxPrice+padding, valueDecimals),
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	kline.SetSeriesOptions(
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        colorBull,
			Color0:       colorBear,
			BorderColor:  colorBull,
			BorderColor0: colorBear,
		}),
	)
	kline.SetXAxis(xAxis)
	kline.AddSeries("Price", buildKlineSeries(in.Candles))

	if len(in.Overlays) > 0 {
		kline.Overlap(buildLines(xAxis, in.Overlays))
	}
	if len(in.Markers) > 0 {
		buys, sells := buildMarkers(in.Candles, in.Markers)
		scatter := charts.NewScatter()
		scatter.SetXAxis(xAxis)
		scatter.AddSeries("BUY", buys, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorBull}))
		scatter.AddSeries("SELL", sells, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorBear}))
		kline.Overlap(scatter)
	}
	return kline
}

func buildLines(xAxis []string, lines []Line) *charts.Line {
	line := charts.NewLine()
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	line.SetXAxis(xAxis)
	for i, l := range lines {
		color := l.Color
		if color == "" {
			color = palette[i%len(palette)]
		}
		line.AddSeries(l.Name, toLineData(l.Values, len(xAxis)),
			charts.WithLineStyleOpts(opts.LineStyle{Color: color, Width: 2}))
	}
	return line
}

func buildPanel(xAxis []string, lines []Line) *charts.Line {
	line := buildLines(xAxis, lines)
	names := make([]string, len(lines))
	for i, l := range lines {
		names[i] = l.Name
	}
	line.SetGlobalOptions(
		charts.WithInitializationOpts(baseInit(panelHeightPx)),
		charts.WithTitleOpts(opts.Title{Title: strings.Join(names, " / "), Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextSecondary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(false)}}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	return line
}

func buildVolumeChart(xAxis []string, candles []market.Candle) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(baseInit(panelHeightPx)),
		charts.WithTitleOpts(opts.Title{Title: "Volume", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(false)}}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	vols := make([]opts.BarData, len(candles))
	for i, c := range candles {
		color := colorBear
		if c.Close >= c.Open {
			color = colorBull
		}
		if !c.HasVolume() {
			vols[i] = opts.BarData{Value: nil}
			continue
		}
		vols[i] = opts.BarData{
			Value:     c.Volume,
			ItemStyle: &opts.ItemStyle{Color: color, Opacity: opts.Float(0.6)},
		}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("Volume", vols, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorVolume}))
	return bar
}

func buildEquityChart(curve []backtest.EquityPoint, interval string) *charts.Line {
	x := make([]string, len(curve))
	data := make([]opts.LineData, len(curve))
	for i, p := range curve {
		x[i] = formatTime(p.Time, interval)
		data[i] = opts.LineData{Value: round(p.Value, 6)}
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(baseInit(equityHeightPx)),
		charts.WithTitleOpts(opts.Title{Title: "Equity", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Color: colorTextSecondary}}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}),
	)
	line.SetXAxis(x)
	line.AddSeries("Equity", data)
	return line
}

func buildXAxis(candles []market.Candle, interval string) []string {
	x := make([]string, len(candles))
	for i, c := range candles {
		x[i] = formatTime(c.Time, interval)
	}
	return x
}

// 日线及以上只显示日期。
func formatTime(sec int64, interval string) string {
	layout := "01-02 15:04"
	if iv, err := market.ParseInterval(interval); err == nil && iv.Duration >= 24*time.Hour {
		layout = "2006-01-02"
	}
	return time.Unix(sec, 0).UTC().Format(layout)
}

func buildKlineSeries(candles []market.Candle) []opts.KlineData {
	data := make([]opts.KlineData, 0, len(candles))
	for _, c := range candles {
		data = append(data, opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}})
	}
	return data
}

// buildMarkers 把买卖点放到对应 K 线下标上，其余位置留空。
func buildMarkers(candles []market.Candle, markers []backtest.Marker) (buys, sells []opts.ScatterData) {
	index := make(map[int64]int, len(candles))
	for i, c := range candles {
		index[c.Time] = i
	}
	buys = make([]opts.ScatterData, len(candles))
	sells = make([]opts.ScatterData, len(candles))
	for _, m := range markers {
		i, ok := index[m.Time]
		if !ok {
			continue
		}
		point := opts.ScatterData{Value: round(m.Price, valueDecimals), SymbolSize: 14}
		switch m.Kind {
		case backtest.MarkerBuy:
			point.Symbol = "triangle"
			buys[i] = point
		case backtest.MarkerSell:
			point.Symbol = "pin"
			sells[i] = point
		}
	}
	return buys, sells
}

// toLineData 把未定义点映射为 nil，图上形成缺口而不是 0。
func toLineData(series indicator.Series, length int) []opts.LineData {
	line := make([]opts.LineData, length)
	for i := 0; i < length; i++ {
		if v, ok := series.At(i).Get(); ok {
			line[i] = opts.LineData{Value: round(v, valueDecimals)}
		}
	}
	return line
}

func hasVolume(candles []market.Candle) bool {
	for _, c := range candles {
		if c.HasVolume() {
			return true
		}
	}
	return false
}

func round(val float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(val)
	}
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}

func priceBounds(candles []market.Candle) (minVal, maxVal float64) {
	minVal, maxVal = math.Inf(1), math.Inf(-1)
	for _, c := range candles {
		if !c.Finite() {
			continue
		}
		minVal = math.Min(minVal, c.Low)
		maxVal = math.Max(maxVal, c.High)
	}
	if math.IsInf(minVal, 1) {
		return 0, 0
	}
	return minVal, maxVal
}
