package pskt

// PSKTRole is a totally ordered tag identifying a stage in the cooperative
// signing workflow. Comparison between roles is meaningful: a lower role
// means "less work has been done on this input/PSKT".
type PSKTRole int

const (
	RoleCreator PSKTRole = iota
	RoleUpdater
	RoleSigner
	RoleFinalizer
	RoleExtractor
)

func (r PSKTRole) String() string {
	switch r {
	case RoleCreator:
		return "CREATOR"
	case RoleUpdater:
		return "UPDATER"
	case RoleSigner:
		return "SIGNER"
	case RoleFinalizer:
		return "FINALIZER"
	case RoleExtractor:
		return "EXTRACTOR"
	default:
		return "UNKNOWN"
	}
}

// minRole returns the smaller of two roles.
func minRole(a, b PSKTRole) PSKTRole {
	if a < b {
		return a
	}
	return b
}
