package config

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher 监听配置文件变化并热更新引擎参数块。
// 只有通过校验的参数才会交给回调；冷却期内的连续写入被合并。
type Watcher struct {
	Path     string
	Cooldown time.Duration
}

// Start 阻塞运行直到 ctx 取消。onUpdate 在每次有效变更后收到新的引擎参数。
func (w Watcher) Start(ctx context.Context, onUpdate func(EngineParams)) error {
	if w.Cooldown <= 0 {
		w.Cooldown = 5 * time.Second
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(w.Path); err != nil {
		return err
	}

	var lastReload time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if time.Since(lastReload) < w.Cooldown {
				continue
			}
			cfg, err := LoadWithEnvOverrides(w.Path)
			if err != nil {
				// 无效配置保持现状
				continue
			}
			lastReload = time.Now()
			if onUpdate != nil {
				onUpdate(cfg.Engine)
			}
		case _, ok := <-fw.Errors:
			if !ok {
				return nil
			}
		}
	}
}
