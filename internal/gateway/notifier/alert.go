package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chartlab/internal/logger"
	"chartlab/internal/pkg/circuit"
)

const defaultAlertTimeout = 20 * time.Second

// Alerter 记录数据源熔断状态变化，并在配置了推送渠道时异步发出告警。
type Alerter struct {
	sender  TextNotifier
	timeout time.Duration
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewAlerter 创建告警器，sender 为 nil 时只写日志。
func NewAlerter(sender TextNotifier) *Alerter {
	return &Alerter{sender: sender, timeout: defaultAlertTimeout, now: time.Now}
}

// BreakerChanged 可直接作为 market.WithBreakerListener 的回调。
func (a *Alerter) BreakerChanged(source string, from, to circuit.State) {
	if a == nil {
		return
	}
	if to == circuit.StateClosed {
		logger.Infof("[alert] 数据源 %s 已恢复 (%s -> %s)", source, from, to)
	} else {
		logger.Warnf("[alert] 数据源 %s 熔断 (%s -> %s)，请求将回退到本地数据", source, from, to)
	}
	if a.sender == nil {
		return
	}
	text := breakerMessage(source, from, to, a.now()).Markdown()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.sender.SendText(ctx, text); err != nil {
			logger.Warnf("[alert] 推送熔断告警失败 source=%s: %v", source, err)
		}
	}()
}

// Wait 等待已发出的告警完成，关闭时调用。
func (a *Alerter) Wait() {
	if a == nil {
		return
	}
	a.wg.Wait()
}

func breakerMessage(source string, from, to circuit.State, at time.Time) Message {
	icon, title := "⚠️", "行情数据源熔断"
	hint := "上游请求暂停，K 线将从本地库回退"
	if to == circuit.StateClosed {
		icon, title = "✅", "行情数据源恢复"
		hint = "上游请求已恢复"
	}
	return Message{
		Icon:  icon,
		Title: title,
		Sections: []Section{{
			Title: "状态",
			Lines: []string{
				"数据源: " + source,
				fmt.Sprintf("变化: %s -> %s", from, to),
			},
		}},
		Footer:    hint,
		Timestamp: at,
	}
}
