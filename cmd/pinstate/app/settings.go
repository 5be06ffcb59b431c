package app

import (
	"github.com/pinmap/pinstate/internal/config"
	"github.com/pinmap/pinstate/internal/coordinator"
	"github.com/pinmap/pinstate/internal/spider"
)

func configFileName() string {
	return config.FileName
}

// spiderConfig overlays the configured tunables on the spiderfier defaults.
func spiderConfig(sc config.SpiderConfig) spider.Config {
	cfg := spider.DefaultConfig()
	if sc.NearbyDistance > 0 {
		cfg.NearbyDistance = sc.NearbyDistance
	}
	if sc.Zoom > 0 {
		cfg.Zoom = sc.Zoom
	}
	if sc.CircleSpiralSwitchover > 0 {
		cfg.CircleSpiralSwitchover = sc.CircleSpiralSwitchover
	}
	if sc.LegWeight > 0 {
		cfg.LegWeight = sc.LegWeight
	}
	cfg.KeepSpiderfied = sc.KeepSpiderfied
	return cfg
}

// coordinatorConfig overlays the configured layers and proxy settings on the
// coordinator defaults.
func coordinatorConfig(lc config.LayerConfig, cc config.CoordinatorConfig) coordinator.Config {
	cfg := coordinator.DefaultConfig()
	cfg.Layers = coordinator.Layers{
		Idle:       lc.Idle,
		Hover:      lc.Hover,
		Faded:      lc.Faded,
		Spiderfied: lc.Spiderfied,
	}
	if cc.Placement != "" {
		cfg.Placement = cc.Placement
	}
	if cc.ProxyClass != "" {
		cfg.ProxyClass = cc.ProxyClass
	}
	if cc.ProxyIndexAttr != "" {
		cfg.ProxyIndexAttr = cc.ProxyIndexAttr
	}
	cfg.ProxyRespectsGroup = cc.ProxyRespectsGroup
	return cfg
}
