package extension

import (
	"time"

	"github.com/xraph/grove"

	tollgate "github.com/xraph/tollgate"
	"github.com/xraph/tollgate/credential"
	"github.com/xraph/tollgate/plugin"
	"github.com/xraph/tollgate/store"
	"github.com/xraph/tollgate/store/mongo"
	"github.com/xraph/tollgate/store/postgres"
	"github.com/xraph/tollgate/store/sqlite"
	"github.com/xraph/tollgate/token"
)

// Option configures the Tollgate Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithPostgres backs the engine with a PostgreSQL store on the given
// grove database.
func WithPostgres(db *grove.DB) Option {
	return func(e *Extension) {
		e.store = postgres.New(db)
	}
}

// WithSQLite backs the engine with a SQLite store on the given grove
// database.
func WithSQLite(db *grove.DB) Option {
	return func(e *Extension) {
		e.store = sqlite.New(db)
	}
}

// WithMongo backs the engine with a MongoDB store on the given grove
// database.
func WithMongo(db *grove.DB) Option {
	return func(e *Extension) {
		e.store = mongo.New(db)
	}
}

// WithTransferor sets the payment capability the engine charges with.
func WithTransferor(t token.Transferor) Option {
	return func(e *Extension) {
		e.tokens = t
	}
}

// WithCredentials sets the credential capability the engine issues with.
func WithCredentials(p credential.Provider) Option {
	return func(e *Extension) {
		e.creds = p
	}
}

// WithEngineOption passes a tollgate.Option through to the underlying engine.
func WithEngineOption(opt tollgate.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a tollgate plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, tollgate.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithOwner sets the caller identity allowed to administer the engine.
func WithOwner(owner string) Option {
	return func(e *Extension) { e.config.Owner = owner }
}

// WithCustody sets the account that holds pulled charges and parked
// credentials.
func WithCustody(account string) Option {
	return func(e *Extension) { e.config.Custody = account }
}

// WithFeeBasisPoints sets the platform cut taken from every charge.
func WithFeeBasisPoints(bps int) Option {
	return func(e *Extension) { e.config.FeeBasisPoints = bps }
}

// WithPresetTerms makes the engine charge each contractor's registered
// per-cycle price, with the given cycle length when requests leave it
// unset.
func WithPresetTerms(cycle time.Duration) Option {
	return func(e *Extension) {
		e.config.PresetTerms = true
		e.config.DefaultCycle = cycle
	}
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
