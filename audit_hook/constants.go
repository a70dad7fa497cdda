package audithook

// Action constants for audit events.
const (
	// Entitlement actions
	ActionGranted = "entitlement.granted"
	ActionPaid    = "payment.collected"
	ActionRevoked = "entitlement.revoked"

	// Registry actions
	ActionContractorAdded        = "contractor.added"
	ActionContractorRemoved      = "contractor.removed"
	ActionContractorTermsUpdated = "contractor.terms_updated"
	ActionCustomerRemoved        = "customer.removed"

	// Treasury actions
	ActionFeeChanged           = "fee.changed"
	ActionContractorWithdrawal = "withdrawal.contractor"
	ActionFeesWithdrawal       = "withdrawal.fees"
)

// Resource constants for audit events.
const (
	ResourceSubscription = "subscription"
	ResourceContractor   = "contractor"
	ResourceCustomer     = "customer"
	ResourceReceipt      = "receipt"
	ResourceTreasury     = "treasury"
)

// Category constants for audit events.
const (
	CategoryEntitlement = "entitlement"
	CategoryPayment     = "payment"
	CategoryRegistry    = "registry"
	CategoryTreasury    = "treasury"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
