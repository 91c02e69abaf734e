package config

import (
	"testing"

	"cgrengine/internal/domain"
)

func validConfig() Config {
	return Config{
		LocalNode: 1,
		Policy:    PolicyConfig{Presets: []string{"unibo-suggested"}},
		Logger:    LoggerConfig{Active: true, Level: "info", Encoding: "json", Mode: "stdout"},
	}
}

func TestValidateRejectsZeroLocalNode(t *testing.T) {
	cfg := validConfig()
	cfg.LocalNode = 0
	if _, err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for localNode == 0")
	}
}

func TestValidateResolvesDefaultPreset(t *testing.T) {
	cfg := validConfig()
	p, err := cfg.Validate()
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	want := domain.DefaultPolicy()
	if p.AvoidLoop != want.AvoidLoop || p.MSREnabled != want.MSREnabled {
		t.Fatalf("resolved policy = %+v, want default %+v", p, want)
	}
}

func TestValidateRejectsUnknownPreset(t *testing.T) {
	cfg := validConfig()
	cfg.Policy.Presets = []string{"not-a-real-preset"}
	if _, err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for an unrecognized preset")
	}
}

func TestPolicyConfigOverridesPreset(t *testing.T) {
	avoidLoop := "off"
	maxRoutes := 7
	cfg := PolicyConfig{Presets: []string{"unibo-suggested"}, AvoidLoop: avoidLoop, MaxDijkstraRoutes: &maxRoutes}
	p, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.AvoidLoop != domain.AvoidLoopOff {
		t.Fatalf("AvoidLoop = %v, want Off override", p.AvoidLoop)
	}
	if p.MaxDijkstraRoutes != 7 {
		t.Fatalf("MaxDijkstraRoutes = %d, want 7", p.MaxDijkstraRoutes)
	}
}

func TestResolveRejectsMultiplePresets(t *testing.T) {
	cfg := PolicyConfig{Presets: []string{"ccsds-sabr", "ion-3.7.0"}}
	if _, err := cfg.Resolve(); err == nil {
		t.Fatal("expected ErrMultiplePresets for two named presets")
	}
}

func TestValidateRejectsRoute53ModeWithoutZone(t *testing.T) {
	cfg := validConfig()
	cfg.ContactPlanSource.Mode = "route53"
	if _, err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for route53 mode missing required fields")
	}
}

func TestValidateRejectsGRPCEnabledWithoutBind(t *testing.T) {
	cfg := validConfig()
	cfg.Adapter.GRPC.Enabled = true
	if _, err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for grpc.enabled without a bind address")
	}
}
