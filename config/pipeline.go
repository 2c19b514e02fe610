package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	pipelineOnce   sync.Once
	pipelineConfig *PipelineConfig
)

// PipelineConfig carries the paths and thresholds shared by every stage.
// It replaces ambient globals: the value is threaded explicitly through the
// pipeline, service and workers.
type PipelineConfig struct {
	// StorageType selects the raw store backend: local, minio or s3.
	StorageType string `yaml:"storageType"`
	// RawRoot is the local raw store root (local backend only).
	RawRoot string `yaml:"rawRoot"`
	// RawPrefixes are the raw store prefixes scanned by the normalizer.
	// The live simulation writes under the second prefix.
	RawPrefixes []string `yaml:"rawPrefixes"`
	// SilverDir, GoldDir and KPIDir are the cleaned, modeled and aggregate
	// output directories.
	SilverDir string `yaml:"silverDir"`
	GoldDir   string `yaml:"goldDir"`
	KPIDir    string `yaml:"kpiDir"`
	// SLAMinutes is the delivery service-level threshold; a delivery is
	// breached when it takes strictly longer than this.
	SLAMinutes float64 `yaml:"slaMinutes"`
	// RerunInterval is the periodic full-rebuild schedule.
	RerunInterval time.Duration `yaml:"rerunInterval"`
	// SimCompleteDelay is how long a simulated order stays PLACED before the
	// delayed completion task marks it DELIVERED.
	SimCompleteDelay time.Duration `yaml:"simCompleteDelay"`
}

func GetPipelineConfig() *PipelineConfig {
	pipelineOnce.Do(func() {
		loadDotEnv()

		pipelineConfig = &PipelineConfig{
			StorageType:      getenv("WOEAT_STORAGE_TYPE", "local"),
			RawRoot:          getenv("WOEAT_RAW_ROOT", "woeat_demo"),
			RawPrefixes:      []string{"bronze/", "bronze_live/"},
			SilverDir:        getenv("WOEAT_SILVER_DIR", "woeat_demo/silver"),
			GoldDir:          getenv("WOEAT_GOLD_DIR", "woeat_demo/gold"),
			KPIDir:           getenv("WOEAT_KPI_DIR", "woeat_demo/kpi"),
			SLAMinutes:       45,
			RerunInterval:    time.Minute,
			SimCompleteDelay: 3 * time.Second,
		}

		if v := os.Getenv("WOEAT_SLA_MINUTES"); v != "" {
			if sla, err := strconv.ParseFloat(v, 64); err == nil {
				pipelineConfig.SLAMinutes = sla
			} else {
				log.Printf("Warning: invalid WOEAT_SLA_MINUTES %q, using default", v)
			}
		}
		if v := os.Getenv("WOEAT_RERUN_INTERVAL"); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				pipelineConfig.RerunInterval = d
			} else {
				log.Printf("Warning: invalid WOEAT_RERUN_INTERVAL %q, using default", v)
			}
		}

		// Optional yaml file overrides the env-derived defaults.
		if path := os.Getenv("WOEAT_PIPELINE_CONFIG"); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				log.Printf("Warning: failed to read pipeline config %s: %v", path, err)
				return
			}
			if err := yaml.Unmarshal(data, pipelineConfig); err != nil {
				log.Printf("Warning: failed to parse pipeline config %s: %v", path, err)
			}
		}
	})
	return pipelineConfig
}
