package tollgate

import "github.com/xraph/tollgate/id"

// ID is the primary identifier type for all Tollgate entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
