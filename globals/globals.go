package globals

// Durable client-side state is keyed by these fixed names.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
	UserKey         = "user"
	CartKey         = "cart"
)

// StateKeys lists every key this client may persist.
var StateKeys = []string{AccessTokenKey, RefreshTokenKey, UserKey, CartKey}

// SensitiveKeys are sealed at rest when a storage secret is configured.
var SensitiveKeys = []string{AccessTokenKey, RefreshTokenKey}

// Context keys
type ContextKey string

const RoleKey ContextKey = "role"
const UserIDKey ContextKey = "userId"
const RequestIDKey ContextKey = "requestId"

// Event names emitted on the in-process bus.
const (
	EventLoggedIn    = "session.logged-in"
	EventLoggedOut   = "session.logged-out"
	EventSessionLost = "session.expired"
	EventCartChanged = "cart.changed"
	EventOrderPlaced = "order.placed"
)
