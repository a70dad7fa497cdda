// Package extension provides the Forge extension adapter for Tollgate.
//
// It implements the forge.Extension interface to integrate Tollgate
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.tollgate" or
// "tollgate" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	tollgate "github.com/xraph/tollgate"
	"github.com/xraph/tollgate/credential"
	"github.com/xraph/tollgate/policy"
	"github.com/xraph/tollgate/store"
	"github.com/xraph/tollgate/store/memory"
	"github.com/xraph/tollgate/token"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "tollgate"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Payment-driven subscription and entitlement engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Tollgate as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *tollgate.Engine
	store      store.Store
	tokens     token.Transferor
	creds      credential.Provider
	engineOpts []tollgate.Option
}

// New creates a new Tollgate Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Tollgate instance.
// This is nil until Register is called.
func (e *Extension) Engine() *tollgate.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Default to in-memory capabilities when none were provided
	// programmatically.
	if e.store == nil {
		e.store = memory.New()
	}
	if e.tokens == nil {
		ledger := token.NewMemoryLedger()
		e.tokens = ledger.Account(e.config.Custody)
	}
	if e.creds == nil {
		e.creds = credential.Shared(credential.NewMemoryCollection())
	}

	opts := e.buildEngineOpts()

	eng := tollgate.New(e.store, e.tokens, e.creds, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*tollgate.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("tollgate: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("tollgate: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs tollgate.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []tollgate.Option {
	opts := make([]tollgate.Option, 0, len(e.engineOpts)+5)

	if e.config.Owner != "" {
		opts = append(opts, tollgate.WithOwner(e.config.Owner))
	}
	if e.config.Custody != "" {
		opts = append(opts, tollgate.WithCustodyAccount(e.config.Custody))
	}
	if e.config.FeeBasisPoints > 0 {
		opts = append(opts, tollgate.WithFeeBasisPoints(e.config.FeeBasisPoints))
	}

	if e.config.PresetTerms {
		opts = append(opts, tollgate.WithTermsResolver(policy.PresetTerms{Cycle: e.config.DefaultCycle}))
	}

	switch e.config.Binding {
	case "per_contractor":
		opts = append(opts, tollgate.WithBinding(policy.BindingPerContractor))
	case "", "exclusive":
		// engine default
	}

	switch e.config.RenewalRule {
	case "from_now":
		opts = append(opts, tollgate.WithRenewalRule(policy.RenewalFromNow))
	case "", "additive":
		// engine default
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("tollgate: configuration is required but not found in config files; " +
				"ensure 'extensions.tollgate' or 'tollgate' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("tollgate: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("owner", e.config.Owner),
		forge.F("custody", e.config.Custody),
		forge.F("fee_basis_points", e.config.FeeBasisPoints),
		forge.F("binding", e.config.Binding),
		forge.F("renewal_rule", e.config.RenewalRule),
		forge.F("default_cycle", e.config.DefaultCycle),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.tollgate" first (namespaced pattern).
	if cm.IsSet("extensions.tollgate") {
		if err := cm.Bind("extensions.tollgate", &cfg); err == nil {
			e.Logger().Debug("tollgate: loaded config from file",
				forge.F("key", "extensions.tollgate"),
			)
			return cfg, true
		}
		e.Logger().Warn("tollgate: failed to bind extensions.tollgate config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "tollgate" key.
	if cm.IsSet("tollgate") {
		if err := cm.Bind("tollgate", &cfg); err == nil {
			e.Logger().Debug("tollgate: loaded config from file",
				forge.F("key", "tollgate"),
			)
			return cfg, true
		}
		e.Logger().Warn("tollgate: failed to bind tollgate config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Custody == "" {
		cfg.Custody = defaults.Custody
	}
	if cfg.FeeBasisPoints == 0 {
		cfg.FeeBasisPoints = defaults.FeeBasisPoints
	}
	if cfg.Binding == "" {
		cfg.Binding = defaults.Binding
	}
	if cfg.RenewalRule == "" {
		cfg.RenewalRule = defaults.RenewalRule
	}
	if cfg.DefaultCycle == 0 {
		cfg.DefaultCycle = defaults.DefaultCycle
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.Owner == "" && programmaticConfig.Owner != "" {
		yamlConfig.Owner = programmaticConfig.Owner
	}
	if yamlConfig.Custody == "" && programmaticConfig.Custody != "" {
		yamlConfig.Custody = programmaticConfig.Custody
	}
	if yamlConfig.Binding == "" && programmaticConfig.Binding != "" {
		yamlConfig.Binding = programmaticConfig.Binding
	}
	if yamlConfig.RenewalRule == "" && programmaticConfig.RenewalRule != "" {
		yamlConfig.RenewalRule = programmaticConfig.RenewalRule
	}

	// Numeric fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.FeeBasisPoints == 0 && programmaticConfig.FeeBasisPoints != 0 {
		yamlConfig.FeeBasisPoints = programmaticConfig.FeeBasisPoints
	}
	if yamlConfig.DefaultCycle == 0 && programmaticConfig.DefaultCycle != 0 {
		yamlConfig.DefaultCycle = programmaticConfig.DefaultCycle
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
