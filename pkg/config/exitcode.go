package config

// Process exit codes (§6.4).
const (
	ExitOK               = 0
	ExitConfigError      = 64
	ExitRegistryLoadFail = 69
	ExitInternalError    = 70
	ExitSIGINT           = 130
)
