// Package preset 管理可热更新的回测参数预设。
package preset

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"chartlab/internal/backtest"
	"chartlab/internal/logger"
	"chartlab/internal/market"
)

// Preset 是一组命名的双均线参数。费用为空时沿用调用方默认值。
type Preset struct {
	Name        string   `yaml:"-" json:"name"`
	Description string   `yaml:"description" json:"description,omitempty"`
	FastLen     int      `yaml:"fast_len" json:"fast_len"`
	SlowLen     int      `yaml:"slow_len" json:"slow_len"`
	Kind        string   `yaml:"kind" json:"kind"`
	Interval    string   `yaml:"interval" json:"interval,omitempty"`
	FeeBps      *float64 `yaml:"fee_bps" json:"fee_bps,omitempty"`
	SlippageBps *float64 `yaml:"slippage_bps" json:"slippage_bps,omitempty"`
}

// Params 返回预设对应的策略参数。
func (p Preset) Params() backtest.Params {
	kind, _ := backtest.ParseMAKind(p.Kind)
	return backtest.Params{FastLen: p.FastLen, SlowLen: p.SlowLen, Kind: kind}
}

// Costs 用预设里显式给出的费用覆盖 def。
func (p Preset) Costs(def backtest.Costs) backtest.Costs {
	if p.FeeBps != nil {
		def.FeeBps = *p.FeeBps
	}
	if p.SlippageBps != nil {
		def.SlippageBps = *p.SlippageBps
	}
	return def
}

func (p Preset) clone() Preset {
	if p.FeeBps != nil {
		v := *p.FeeBps
		p.FeeBps = &v
	}
	if p.SlippageBps != nil {
		v := *p.SlippageBps
		p.SlippageBps = &v
	}
	return p
}

// FileConfig 对应 presets.yaml。
type FileConfig struct {
	Presets map[string]Preset `yaml:"presets"`
}

// Snapshot 是某一版本的全部预设。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Presets  map[string]Preset
}

// ChangeListener 在重载成功后被调用。
type ChangeListener func(Snapshot)

// Registry 从 YAML 文件加载预设，并在文件变化时重载；读取方拿到的都是副本。
type Registry struct {
	path   string
	v      *viper.Viper
	schema *jsonschema.Schema

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
	watching  bool
}

// NewRegistry 读取并校验预设文件。调用 Watch 后才开始监听变更。
func NewRegistry(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("preset registry requires path")
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile preset schema: %w", err)
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read preset config failed: %w", err)
	}
	r := &Registry{path: path, v: v, schema: schema}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Watch 开启文件监听；重复调用无副作用。
func (r *Registry) Watch() {
	r.mu.Lock()
	if r.watching {
		r.mu.Unlock()
		return
	}
	r.watching = true
	r.mu.Unlock()
	r.v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.Reload(); err != nil {
			logger.Errorf("preset reload failed (%s): %v", evt.Name, err)
			return
		}
		r.notifyListeners()
	})
	r.v.WatchConfig()
}

// Reload 重新读取文件；失败时保留旧快照。
func (r *Registry) Reload() error {
	cfg, err := r.readFile()
	if err != nil {
		return err
	}
	presets := make(map[string]Preset, len(cfg.Presets))
	for name, p := range cfg.Presets {
		norm, err := normalize(name, p)
		if err != nil {
			return err
		}
		presets[norm.Name] = norm
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Presets:  presets,
	}
	r.mu.Unlock()
	logger.Infof("Preset registry loaded %d presets from %s", len(presets), filepath.Base(r.path))
	return nil
}

// Snapshot 返回当前快照的副本。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Get 按名称（不区分大小写）查找预设。
func (r *Registry) Get(name string) (Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.snapshot.Presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Preset{}, false
	}
	return p.clone(), true
}

// List 按名称排序返回全部预设。
func (r *Registry) List() []Preset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Preset, 0, len(r.snapshot.Presets))
	for _, p := range r.snapshot.Presets {
		out = append(out, p.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Subscribe 注册变更监听。
func (r *Registry) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer safeRecover("preset listener")
			cb(cloneSnapshot(snap))
		}(fn)
	}
}

// readFile 先做 schema 校验，再用 KnownFields 严格解码。
func (r *Registry) readFile() (FileConfig, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read preset config failed: %w", err)
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return FileConfig{}, fmt.Errorf("parse preset config failed: %w", err)
	}
	doc, err := toJSONValue(generic)
	if err != nil {
		return FileConfig{}, fmt.Errorf("parse preset config failed: %w", err)
	}
	if err := r.schema.Validate(doc); err != nil {
		return FileConfig{}, fmt.Errorf("preset config invalid: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse preset config failed: %w", err)
	}
	return cfg, nil
}

func normalize(name string, p Preset) (Preset, error) {
	p.Name = strings.ToLower(strings.TrimSpace(name))
	p.Description = strings.TrimSpace(p.Description)
	kind, err := backtest.ParseMAKind(p.Kind)
	if err != nil {
		return Preset{}, fmt.Errorf("preset %s: %w", p.Name, err)
	}
	p.Kind = string(kind)
	if p.Interval = strings.TrimSpace(p.Interval); p.Interval != "" {
		iv, err := market.ParseInterval(p.Interval)
		if err != nil {
			return Preset{}, fmt.Errorf("preset %s: %w", p.Name, err)
		}
		p.Interval = iv.Key
	}
	if err := p.Params().Validate(); err != nil {
		return Preset{}, fmt.Errorf("preset %s: %w", p.Name, err)
	}
	if p.FastLen >= p.SlowLen {
		return Preset{}, fmt.Errorf("preset %s: fast_len %d must be below slow_len %d", p.Name, p.FastLen, p.SlowLen)
	}
	return p, nil
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Presets:  make(map[string]Preset, len(src.Presets)),
	}
	for name, p := range src.Presets {
		dst.Presets[name] = p.clone()
	}
	return dst
}

func safeRecover(tag string) {
	if r := recover(); r != nil {
		logger.Errorf("%s panic: %v", tag, r)
	}
}
