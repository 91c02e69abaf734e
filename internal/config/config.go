// Package config loads and validates the engine's YAML configuration:
// the CGR policy (spec.md §6), logger and tracer settings carried over
// in shape from the teacher, and the optional contact-plan and gRPC
// adapters (SPEC_FULL.md §4.11).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cgrengine/internal/domain"
	"cgrengine/internal/logger"

	"gopkg.in/yaml.v3"
)

// ErrMultiplePresets is returned, wrapped, by Resolve when more than one
// named policy preset is selected at once.
var ErrMultiplePresets = fmt.Errorf("policy: at most one preset may be named")

// PolicyConfig is the YAML projection of domain.Policy. Presets names the
// starting point (empty means "unibo-suggested", spec.md §6's default);
// any field set below overrides the preset's value.
type PolicyConfig struct {
	// Presets names at most one of "ccsds-sabr", "ion-3.7.0" or
	// "unibo-suggested" (the default if empty); naming more than one is
	// an ErrMultiplePresets validation error.
	Presets                         []string `yaml:"presets"`
	AvoidLoop                       string   `yaml:"avoidLoop"`
	MaxDijkstraRoutes               *int     `yaml:"maxDijkstraRoutes"`
	QueueDelay                      string   `yaml:"queueDelay"`
	NeglectConfidence               *bool    `yaml:"neglectConfidence"`
	AddComputedRouteToIntermediates *bool    `yaml:"addComputedRouteToIntermediates"`
	MinConfidenceImprovement        *float64 `yaml:"minConfidenceImprovement"`
	PercConvergenceLayerOverhead    *float64 `yaml:"percConvergenceLayerOverhead"`
	MinConvergenceLayerOverhead     *float64 `yaml:"minConvergenceLayerOverhead"`
	MSREnabled                      *bool    `yaml:"msrEnabled"`
	MSRTimeTolerance                *int64   `yaml:"msrTimeTolerance"`
	WiseNode                        *bool    `yaml:"wiseNode"`
	MSRHopsLowerBound               *int     `yaml:"msrHopsLowerBound"`
	MaxSpeedMph                     *float64 `yaml:"maxSpeedMph"`
}

// Resolve builds a domain.Policy from the named preset plus any explicit
// overrides. cfg.Presets must name at most one of the three presets.
func (cfg PolicyConfig) Resolve() (domain.Policy, error) {
	if len(cfg.Presets) > 1 {
		return domain.Policy{}, fmt.Errorf("%w: got %v", ErrMultiplePresets, cfg.Presets)
	}

	name := ""
	if len(cfg.Presets) == 1 {
		name = cfg.Presets[0]
	}

	preset := domain.PresetUniboSuggested
	switch strings.ToLower(name) {
	case "", "unibo-suggested":
		preset = domain.PresetUniboSuggested
	case "ccsds-sabr":
		preset = domain.PresetCCSDSSABR
	case "ion-3.7.0", "ion-370":
		preset = domain.PresetION370
	default:
		return domain.Policy{}, fmt.Errorf("policy.presets: unknown preset %q", name)
	}

	var p domain.Policy
	p.ApplyPreset(preset)

	switch strings.ToLower(cfg.AvoidLoop) {
	case "":
	case "off":
		p.AvoidLoop = domain.AvoidLoopOff
	case "reactive":
		p.AvoidLoop = domain.AvoidLoopReactive
	case "proactive":
		p.AvoidLoop = domain.AvoidLoopProactive
	case "both":
		p.AvoidLoop = domain.AvoidLoopBoth
	default:
		return domain.Policy{}, fmt.Errorf("policy.avoidLoop: unrecognized value %q", cfg.AvoidLoop)
	}
	switch strings.ToLower(cfg.QueueDelay) {
	case "":
	case "first-hop":
		p.QueueDelay = domain.QueueDelayFirstHopOnly
	case "all-hops":
		p.QueueDelay = domain.QueueDelayAllHops
	default:
		return domain.Policy{}, fmt.Errorf("policy.queueDelay: unrecognized value %q", cfg.QueueDelay)
	}
	if cfg.MaxDijkstraRoutes != nil {
		p.MaxDijkstraRoutes = *cfg.MaxDijkstraRoutes
	}
	if cfg.NeglectConfidence != nil {
		p.NeglectConfidence = *cfg.NeglectConfidence
	}
	if cfg.AddComputedRouteToIntermediates != nil {
		p.AddComputedRouteToIntermediates = *cfg.AddComputedRouteToIntermediates
	}
	if cfg.MinConfidenceImprovement != nil {
		p.MinConfidenceImprovement = *cfg.MinConfidenceImprovement
	}
	if cfg.PercConvergenceLayerOverhead != nil {
		p.PercConvergenceLayerOverhead = *cfg.PercConvergenceLayerOverhead
	}
	if cfg.MinConvergenceLayerOverhead != nil {
		p.MinConvergenceLayerOverhead = *cfg.MinConvergenceLayerOverhead
	}
	if cfg.MSREnabled != nil {
		p.MSREnabled = *cfg.MSREnabled
	}
	if cfg.MSRTimeTolerance != nil {
		p.MSRTimeTolerance = domain.Time(*cfg.MSRTimeTolerance)
	}
	if cfg.WiseNode != nil {
		p.WiseNode = *cfg.WiseNode
	}
	if cfg.MSRHopsLowerBound != nil {
		p.MSRHopsLowerBound = *cfg.MSRHopsLowerBound
	}
	if cfg.MaxSpeedMph != nil {
		p.MaxSpeedMph = *cfg.MaxSpeedMph
	}
	return p, nil
}

type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

type TelemetryConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

type FileLoggerConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"`
	Compress   bool   `yaml:"compress"`
}

type LoggerConfig struct {
	Active   bool             `yaml:"active"`
	Level    string           `yaml:"level"`
	Encoding string           `yaml:"encoding"`
	Mode     string           `yaml:"mode"`
	File     FileLoggerConfig `yaml:"file"`
}

// Route53Config names the hosted zone a route53plan.Watcher polls for
// contact-plan TXT records (SPEC_FULL.md §4.12).
type Route53Config struct {
	HostedZoneID string        `yaml:"hostedZoneId"`
	DomainSuffix string        `yaml:"domainSuffix"`
	PollInterval time.Duration `yaml:"pollInterval"`
}

// ContactPlanSourceConfig selects where the live contact plan is fed
// from, beyond direct engine API calls.
type ContactPlanSourceConfig struct {
	Mode    string        `yaml:"mode"` // "none" | "route53"
	Route53 Route53Config `yaml:"route53"`
}

// GRPCConfig configures the host-callback transport adapter (C13).
type GRPCConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
}

type AdapterConfig struct {
	GRPC GRPCConfig `yaml:"grpc"`
}

// Config is the engine's top-level configuration document.
type Config struct {
	LocalNode         domain.NodeID           `yaml:"localNode"`
	Policy            PolicyConfig            `yaml:"policy"`
	Logger            LoggerConfig            `yaml:"logger"`
	Telemetry         TelemetryConfig         `yaml:"telemetry"`
	ContactPlanSource ContactPlanSourceConfig `yaml:"contactPlanSource"`
	Adapter           AdapterConfig           `yaml:"adapter"`
}

// LoadConfig loads the configuration from a YAML file at the given path.
// This performs only syntactic parsing; call Validate afterward.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides to the
// configuration, for deployment-specific fields commonly injected
// through the environment rather than baked into the YAML file.
//
//	CGR_LOCAL_NODE           -> cfg.LocalNode
//	CGR_POLICY_PRESET        -> cfg.Policy.Presets (as its only entry)
//	CGR_LOGGER_ACTIVE        -> cfg.Logger.Active
//	CGR_LOGGER_LEVEL         -> cfg.Logger.Level
//	CGR_LOGGER_ENCODING      -> cfg.Logger.Encoding
//	CGR_LOGGER_MODE          -> cfg.Logger.Mode
//	CGR_LOGGER_FILE_PATH     -> cfg.Logger.File.Path
//	CGR_TRACE_ENABLED        -> cfg.Telemetry.Tracing.Enabled
//	CGR_TRACE_EXPORTER       -> cfg.Telemetry.Tracing.Exporter
//	CGR_TRACE_ENDPOINT       -> cfg.Telemetry.Tracing.Endpoint
//	CGR_CONTACTPLAN_MODE     -> cfg.ContactPlanSource.Mode
//	CGR_ROUTE53_ZONE_ID      -> cfg.ContactPlanSource.Route53.HostedZoneID
//	CGR_ROUTE53_SUFFIX       -> cfg.ContactPlanSource.Route53.DomainSuffix
//	CGR_GRPC_ENABLED         -> cfg.Adapter.GRPC.Enabled
//	CGR_GRPC_BIND            -> cfg.Adapter.GRPC.Bind
func (cfg *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CGR_LOCAL_NODE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.LocalNode = domain.NodeID(n)
		}
	}
	if v := os.Getenv("CGR_POLICY_PRESET"); v != "" {
		cfg.Policy.Presets = []string{v}
	}
	if v := os.Getenv("CGR_LOGGER_ACTIVE"); v != "" {
		cfg.Logger.Active = parseBool(v)
	}
	if v := os.Getenv("CGR_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("CGR_LOGGER_ENCODING"); v != "" {
		cfg.Logger.Encoding = v
	}
	if v := os.Getenv("CGR_LOGGER_MODE"); v != "" {
		cfg.Logger.Mode = v
	}
	if v := os.Getenv("CGR_LOGGER_FILE_PATH"); v != "" {
		cfg.Logger.File.Path = v
	}
	if v := os.Getenv("CGR_TRACE_ENABLED"); v != "" {
		cfg.Telemetry.Tracing.Enabled = parseBool(v)
	}
	if v := os.Getenv("CGR_TRACE_EXPORTER"); v != "" {
		cfg.Telemetry.Tracing.Exporter = v
	}
	if v := os.Getenv("CGR_TRACE_ENDPOINT"); v != "" {
		cfg.Telemetry.Tracing.Endpoint = v
	}
	if v := os.Getenv("CGR_CONTACTPLAN_MODE"); v != "" {
		cfg.ContactPlanSource.Mode = v
	}
	if v := os.Getenv("CGR_ROUTE53_ZONE_ID"); v != "" {
		cfg.ContactPlanSource.Route53.HostedZoneID = v
	}
	if v := os.Getenv("CGR_ROUTE53_SUFFIX"); v != "" {
		cfg.ContactPlanSource.Route53.DomainSuffix = v
	}
	if v := os.Getenv("CGR_GRPC_ENABLED"); v != "" {
		cfg.Adapter.GRPC.Enabled = parseBool(v)
	}
	if v := os.Getenv("CGR_GRPC_BIND"); v != "" {
		cfg.Adapter.GRPC.Bind = v
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(v)
	return v == "true" || v == "1" || v == "yes"
}

// Validate performs structural validation of the loaded configuration
// and resolves the policy preset, returning the accumulated domain.Policy
// alongside any error. It does not check CGR-semantic correctness beyond
// what spec.md §6 requires of the preset fields themselves.
func (cfg *Config) Validate() (domain.Policy, error) {
	var errs []string

	if cfg.LocalNode == 0 {
		errs = append(errs, "localNode must be non-zero")
	}

	policy, err := cfg.Policy.Resolve()
	if err != nil {
		errs = append(errs, err.Error())
	}

	switch cfg.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.level: %s", cfg.Logger.Level))
	}
	switch cfg.Logger.Encoding {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.encoding: %s", cfg.Logger.Encoding))
	}
	switch cfg.Logger.Mode {
	case "stdout":
	case "file":
		if cfg.Logger.File.Path == "" {
			errs = append(errs, "logger.file.path is required when mode=file")
		}
		if cfg.Logger.File.MaxSize < 0 || cfg.Logger.File.MaxBackups < 0 || cfg.Logger.File.MaxAge < 0 {
			errs = append(errs, "logger.file.* values must be non-negative")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.mode: %s", cfg.Logger.Mode))
	}

	if cfg.Telemetry.Tracing.Enabled {
		switch cfg.Telemetry.Tracing.Exporter {
		case "stdout", "otlp":
		default:
			errs = append(errs, fmt.Sprintf("invalid telemetry.tracing.exporter: %s", cfg.Telemetry.Tracing.Exporter))
		}
		if cfg.Telemetry.Tracing.Exporter == "otlp" && cfg.Telemetry.Tracing.Endpoint == "" {
			errs = append(errs, "telemetry.tracing.endpoint is required for exporter=otlp")
		}
	}

	switch cfg.ContactPlanSource.Mode {
	case "", "none":
	case "route53":
		r := cfg.ContactPlanSource.Route53
		if r.HostedZoneID == "" {
			errs = append(errs, "contactPlanSource.route53.hostedZoneId is required when mode=route53")
		}
		if r.DomainSuffix == "" {
			errs = append(errs, "contactPlanSource.route53.domainSuffix is required when mode=route53")
		}
		if r.PollInterval <= 0 {
			errs = append(errs, "contactPlanSource.route53.pollInterval must be > 0 when mode=route53")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid contactPlanSource.mode: %s", cfg.ContactPlanSource.Mode))
	}

	if cfg.Adapter.GRPC.Enabled && cfg.Adapter.GRPC.Bind == "" {
		errs = append(errs, "adapter.grpc.bind is required when adapter.grpc.enabled=true")
	}

	if len(errs) > 0 {
		return domain.Policy{}, fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return policy, nil
}

// LogConfig prints the loaded configuration at DEBUG level, useful for
// verifying a deployment's effective settings at startup.
func (cfg *Config) LogConfig(lgr logger.Logger) {
	lgr.Debug("loaded configuration",
		logger.F("localNode", cfg.LocalNode),

		logger.F("policy.presets", cfg.Policy.Presets),
		logger.F("policy.avoidLoop", cfg.Policy.AvoidLoop),
		logger.F("policy.queueDelay", cfg.Policy.QueueDelay),
		logger.F("policy.msrEnabled", cfg.Policy.MSREnabled),

		logger.F("logger.active", cfg.Logger.Active),
		logger.F("logger.level", cfg.Logger.Level),
		logger.F("logger.encoding", cfg.Logger.Encoding),
		logger.F("logger.mode", cfg.Logger.Mode),
		logger.F("logger.file.path", cfg.Logger.File.Path),

		logger.F("telemetry.tracing.enabled", cfg.Telemetry.Tracing.Enabled),
		logger.F("telemetry.tracing.exporter", cfg.Telemetry.Tracing.Exporter),
		logger.F("telemetry.tracing.endpoint", cfg.Telemetry.Tracing.Endpoint),

		logger.F("contactPlanSource.mode", cfg.ContactPlanSource.Mode),
		logger.F("contactPlanSource.route53.hostedZoneId", cfg.ContactPlanSource.Route53.HostedZoneID),
		logger.F("contactPlanSource.route53.domainSuffix", cfg.ContactPlanSource.Route53.DomainSuffix),
		logger.F("contactPlanSource.route53.pollInterval", cfg.ContactPlanSource.Route53.PollInterval.String()),

		logger.F("adapter.grpc.enabled", cfg.Adapter.GRPC.Enabled),
		logger.F("adapter.grpc.bind", cfg.Adapter.GRPC.Bind),
	)
}
