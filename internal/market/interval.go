package market

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Interval 描述一个 K 线周期（对外 key + 时长）。
type Interval struct {
	Key      string
	Duration time.Duration
}

var supportedIntervals = map[string]Interval{
	"1m":  {Key: "1m", Duration: time.Minute},
	"3m":  {Key: "3m", Duration: 3 * time.Minute},
	"5m":  {Key: "5m", Duration: 5 * time.Minute},
	"15m": {Key: "15m", Duration: 15 * time.Minute},
	"30m": {Key: "30m", Duration: 30 * time.Minute},
	"1H":  {Key: "1H", Duration: time.Hour},
	"4H":  {Key: "4H", Duration: 4 * time.Hour},
	"6H":  {Key: "6H", Duration: 6 * time.Hour},
	"12H": {Key: "12H", Duration: 12 * time.Hour},
	"1D":  {Key: "1D", Duration: 24 * time.Hour},
	"3D":  {Key: "3D", Duration: 72 * time.Hour},
	"1W":  {Key: "1W", Duration: 7 * 24 * time.Hour},
	"1M":  {Key: "1M", Duration: 30 * 24 * time.Hour},
}

// ParseInterval 接受 "1h"/"1H"/"1d" 等写法，返回标准化周期。
// 分钟级保持小写 m，避免与月线 1M 混淆。
func ParseInterval(input string) (Interval, error) {
	key := strings.TrimSpace(input)
	if iv, ok := supportedIntervals[key]; ok {
		return iv, nil
	}
	if n := len(key); n > 1 {
		unit := key[n-1:]
		switch unit {
		case "h", "d", "w":
			if iv, ok := supportedIntervals[key[:n-1]+strings.ToUpper(unit)]; ok {
				return iv, nil
			}
		}
	}
	return Interval{}, fmt.Errorf("unsupported interval: %q", input)
}

// Seconds 返回周期的秒数。
func (iv Interval) Seconds() int64 {
	return int64(iv.Duration / time.Second)
}

// SupportedIntervals 按时长升序返回全部 key。
func SupportedIntervals() []string {
	list := make([]Interval, 0, len(supportedIntervals))
	for _, iv := range supportedIntervals {
		list = append(list, iv)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Duration < list[j].Duration })
	keys := make([]string, len(list))
	for i, iv := range list {
		keys[i] = iv.Key
	}
	return keys
}
