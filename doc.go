// Package tollgate provides a subscription and entitlement engine for Go
// applications.
//
// Tollgate is designed as a library, not a service. Import it directly into
// your Go application and drive it from whatever surface you expose. It
// provides:
//
//   - A three-state entitlement machine (absent, granted, suspended) driven
//     entirely by payments
//   - Integer-exact fee splitting between contractors and a platform pool
//   - Credential custody: suspended entitlements park their credential with
//     the engine until a payment recovers it
//   - Pluggable payment and credential capabilities (in-memory included)
//   - A receipt journal for every collected charge
//   - Pluggable storage (memory, Postgres, SQLite, MongoDB via Grove)
//   - An event plugin system for grants, renewals, revocations, and
//     treasury changes
//
// # Quick Start
//
// Create an engine with a store and the two injected capabilities:
//
//	import (
//	    "github.com/xraph/tollgate"
//	    "github.com/xraph/tollgate/credential"
//	    "github.com/xraph/tollgate/store/memory"
//	    "github.com/xraph/tollgate/token"
//	)
//
//	ledger := token.NewMemoryLedger()
//	creds := credential.Shared(credential.NewMemoryCollection())
//
//	engine := tollgate.New(memory.New(), ledger.Account("treasury"), creds,
//	    tollgate.WithOwner("admin"),
//	    tollgate.WithCustodyAccount("treasury"),
//	)
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
// # Core Concepts
//
// Contractors are the parties customers subscribe to. The owner registers
// them with their per-cycle terms:
//
//	err := engine.AddContractor(ctx, "admin", "acme", contractor.Config{
//	    PerCycle: types.Tokens(100),
//	})
//
// Payments drive everything. A first payment grants an entitlement and
// issues a credential; later payments renew it; a failed renewal after
// expiry suspends it; a payment while suspended reactivates it:
//
//	res, err := engine.Pay(ctx, "alice", "acme", policy.Request{
//	    Amount:   types.Tokens(100),
//	    Duration: 30 * 24 * time.Hour,
//	})
//	switch res.Outcome {
//	case tollgate.OutcomeGranted, tollgate.OutcomePaid:
//	    // access is live
//	case tollgate.OutcomeRevoked:
//	    // entitlement suspended until the customer can pay
//	}
//
// Every collected charge is split: a basis-point fee accrues to the
// platform pool and the remainder to the contractor's balance. Both sides
// withdraw explicitly:
//
//	amount, err := engine.WithdrawContractorBalance(ctx, "acme")
//	fees, err := engine.WithdrawFees(ctx, "admin")
//
// All monetary calculations use integer arithmetic to avoid floating-point
// precision issues. The Amount type counts token base units; the engine
// never interprets what a unit is worth.
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	sub_01h2xcejqtf2nbrexx3vqjhp41   // Subscription ID
//	cred_01h2xcejqtf2nbrexx3vqjhp41  // Credential ID
//	rcpt_01h455vb4pex5vsknk084sn02q  // Receipt ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package tollgate
