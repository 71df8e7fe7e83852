package app

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.QueueName != "thinkbank:tasks" {
		t.Fatalf("queue=%q", cfg.QueueName)
	}
	if cfg.PopTimeout != 5*time.Second || cfg.ErrorBackoff != time.Second || cfg.ClaimLease != 30*time.Minute {
		t.Fatalf("timings: pop=%v backoff=%v lease=%v", cfg.PopTimeout, cfg.ErrorBackoff, cfg.ClaimLease)
	}
	if cfg.ReconcileInterval != 5*time.Minute {
		t.Fatalf("reconcile interval=%v", cfg.ReconcileInterval)
	}
	if cfg.ObjectStore != StoreMinio || cfg.Classifier != ProviderInference {
		t.Fatalf("backends: store=%q classifier=%q", cfg.ObjectStore, cfg.Classifier)
	}
	if cfg.OpsAddr != "" || cfg.OtelEnabled {
		t.Fatalf("ops listener and tracing must default off")
	}
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("WORKER_ID", " worker-7 ")
	t.Setenv("OBJECT_STORE", "GCS")
	t.Setenv("CLAIM_LEASE", "5m")
	t.Setenv("TEXT_EMBED_PROVIDER", "openai")
	t.Setenv("OPENAI_BASE_URL", "http://llm:8080/v1")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.WorkerID != "worker-7" || cfg.ObjectStore != StoreGCS || cfg.ClaimLease != 5*time.Minute {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.TextEmbedProvider != ProviderOpenAI {
		t.Fatalf("provider=%q", cfg.TextEmbedProvider)
	}
}

func TestLoadConfig_Rejects(t *testing.T) {
	cases := map[string][2]string{
		"store":      {"OBJECT_STORE", "s3"},
		"classifier": {"CLASSIFIER", "magic"},
		"openai":     {"GENERATE_PROVIDER", "openai"},
		"pop":        {"POP_TIMEOUT", "10ms"},
		"duration":   {"ASSET_TIMEOUT", "soon"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}
