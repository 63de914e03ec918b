package errorx

type Code int

var Unknown = Error{Code: 100000, Message: "Request failed"}

const (
	// Common codes
	BadRequest       Code = 100001
	BadResponse      Code = 100002
	PermissionDenied Code = 100003
	NotFound         Code = 100004
	Unauthenticated  Code = 100005
	AlreadyExists    Code = 100006
	Internal         Code = 100007
	Unavailable      Code = 100008
	NotImplemented   Code = 100009
	TooManyRequests  Code = 100010

	// Capacity codes
	CapacityExceeded     Code = 200001
	PerUserLimitExceeded Code = 200002

	// State codes
	RaffleNotOpen  Code = 300001
	AlreadyDrawn   Code = 300002
	DrawInProgress Code = 300003
	NotReady       Code = 300004

	// Resource codes
	InsufficientBalance Code = 400001

	// Integrity codes
	IntegrityViolation Code = 500001
)
