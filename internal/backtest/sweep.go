package backtest

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"chartlab/internal/indicator"
	"chartlab/internal/market"
)

// SweepResult 是参数扫描中单组参数的结果。
type SweepResult struct {
	Params Params `json:"params"`
	Stats  Stats  `json:"stats"`
}

// Grid 生成 fast×slow 的参数组合，跳过 fast>=slow。
// 不按乘积预分配；调用方负责限制输入规模。
func Grid(fasts, slows []int, kind MAKind) []Params {
	var out []Params
	for _, f := range fasts {
		for _, s := range slows {
			if f >= s {
				continue
			}
			out = append(out, Params{FastLen: f, SlowLen: s, Kind: kind})
		}
	}
	return out
}

type signalKey struct {
	kind MAKind
	n    int
}

// Sweep 并发回测一组参数，结果顺序与 grid 一致。
// 每个任务独立持有状态机；信号序列预先算好后只读共享。ctx 取消后不再调度新任务。
func Sweep(ctx context.Context, candles []market.Candle, grid []Params, costs Costs, concurrency int) ([]SweepResult, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	closes := market.Series(candles).Closes()
	signals := make(map[signalKey]indicator.Series)
	for _, p := range grid {
		for _, n := range []int{p.FastLen, p.SlowLen} {
			key := signalKey{kind: p.Kind, n: n}
			if _, ok := signals[key]; !ok {
				signals[key] = Signal(p.Kind, closes, n)
			}
		}
	}

	out := make([]SweepResult, len(grid))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, p := range grid {
		if gctx.Err() != nil {
			break
		}
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fast := signals[signalKey{kind: p.Kind, n: p.FastLen}]
			slow := signals[signalKey{kind: p.Kind, n: p.SlowLen}]
			out[i] = SweepResult{Params: p, Stats: Run(candles, fast, slow, costs).Stats}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Rank 按总收益降序、回撤升序排序，返回新切片。
func Rank(results []SweepResult) []SweepResult {
	out := append([]SweepResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Stats, out[j].Stats
		if a.TotalReturn != b.TotalReturn {
			return a.TotalReturn > b.TotalReturn
		}
		return a.MaxDrawdown < b.MaxDrawdown
	})
	return out
}
