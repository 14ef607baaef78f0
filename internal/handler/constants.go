package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteSuffixNew is the suffix for "new" routes.
	RouteSuffixNew = "/new"
	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"

	// RouteLogin is the login page route.
	RouteLogin = "/login"
	// RouteRegister is the registration page route.
	RouteRegister = "/register"

	// RouteEvents is the events admin route.
	RouteEvents = "/events"
	// RouteVenues is the venues admin route.
	RouteVenues = "/venues"
	// RouteUsers is the users admin route.
	RouteUsers = "/users"
	// RouteAudit is the audit log admin route.
	RouteAudit = "/audit"
	// RouteSessions is the active sessions admin route.
	RouteSessions = "/sessions"
	// RouteSeating is the seating plan admin route.
	RouteSeating = "/seating"

	// RouteEventsID is the events ID route pattern.
	RouteEventsID = RouteEvents + RouteParamID
	// RouteVenuesID is the venues ID route pattern.
	RouteVenuesID = RouteVenues + RouteParamID
	// RouteUsersID is the users ID route pattern.
	RouteUsersID = RouteUsers + RouteParamID
)

const (
	redirectAdmin       = "/admin"
	redirectAdminEvents = redirectAdmin + RouteEvents
	redirectAdminVenues = redirectAdmin + RouteVenues
	redirectAdminUsers  = redirectAdmin + RouteUsers
	redirectLogin       = RouteLogin
	redirectRegister    = RouteRegister
)
