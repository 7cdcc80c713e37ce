package config

import (
	"reflect"
	"strings"
	"testing"
	"time"

	mb "github.com/saeidalz13/battleship-session/models/battleship"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Stage != StageDev || cfg.Port != 8000 || cfg.DatabaseURL != "" {
		t.Fatalf("basics %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Rules, mb.DefaultRules()) {
		t.Fatalf("rules %+v", cfg.Rules)
	}
	if cfg.DisconnectGrace != 0 || cfg.SessionTTL != 2*time.Hour || cfg.WriteTimeout != 10*time.Second {
		t.Fatalf("durations grace %s ttl %s", cfg.DisconnectGrace, cfg.SessionTTL)
	}
	if cfg.MsgRate != 5 || cfg.MsgBurst != 10 {
		t.Fatalf("rate %v burst %d", cfg.MsgRate, cfg.MsgBurst)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"STAGE":            "prod",
		"PORT":             "9090",
		"GRID_SIZE":        "8",
		"FLEET":            "4:1,3:2,2:1",
		"TURN_RULE":        "hit_keeps_turn",
		"SESSION_SECRET":   strings.Repeat("x", 32),
		"ALLOWED_ORIGINS":  "https://a.example.com, https://b.example.com,",
		"DISCONNECT_GRACE": "90s",
		"SESSION_TTL":      "0s",
		"WRITE_TIMEOUT":    "3s",
	}))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Stage != StageProd || cfg.Port != 9090 {
		t.Fatalf("basics %+v", cfg)
	}
	if cfg.Rules.GridSize != 8 || cfg.Rules.TurnRule != mb.TurnRuleHitKeepsTurn {
		t.Fatalf("rules %+v", cfg.Rules)
	}
	if want := (mb.Manifest{4: 1, 3: 2, 2: 1}); !reflect.DeepEqual(cfg.Rules.Manifest, want) {
		t.Fatalf("fleet %v", cfg.Rules.Manifest)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"https://a.example.com", "https://b.example.com"}) {
		t.Fatalf("origins %v", cfg.AllowedOrigins)
	}
	if cfg.DisconnectGrace != 90*time.Second || cfg.SessionTTL != 0 || cfg.WriteTimeout != 3*time.Second {
		t.Fatalf("durations grace %s ttl %s", cfg.DisconnectGrace, cfg.SessionTTL)
	}
}

func TestFromEnvRejects(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{name: "stage", vars: map[string]string{"STAGE": "staging"}},
		{name: "port not a number", vars: map[string]string{"PORT": "eighty"}},
		{name: "port out of range", vars: map[string]string{"PORT": "70000"}},
		{name: "grid too small", vars: map[string]string{"GRID_SIZE": "2"}},
		{name: "fleet", vars: map[string]string{"FLEET": "five"}},
		{name: "turn rule", vars: map[string]string{"TURN_RULE": "always_keep"}},
		{name: "prod without secret", vars: map[string]string{"STAGE": "prod"}},
		{name: "bad duration", vars: map[string]string{"DISCONNECT_GRACE": "soon"}},
		{name: "negative duration", vars: map[string]string{"SESSION_TTL": "-1m"}},
		{name: "zero burst", vars: map[string]string{"MSG_BURST": "0"}},
		{name: "zero write timeout", vars: map[string]string{"WRITE_TIMEOUT": "0s"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := FromEnv(env(test.vars)); err == nil {
				t.Fatal("want error")
			}
		})
	}
}
