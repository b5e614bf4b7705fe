package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// AuthPath is the base path of the token endpoints.
	AuthPath = RootPath + "auth"

	// AdminPath is the base path of the administration endpoints.
	AdminPath = RootPath + "admin"

	// ErrNilDepsFatalLogMsg is used if app or one of the handler dependencies is nil.
	ErrNilDepsFatalLogMsg = "app or handler dependencies are nil"
)
