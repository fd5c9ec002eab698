package ir

// Version constants for the IR schema and toolchain.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// EngineVersion is the g3d toolchain version.
	EngineVersion = "0.1.0"
)
