package svcctl

// Operation numbers of the svcctl RPC interface.
// Reference: https://learn.microsoft.com/openspecs/windows_protocols/ms-scmr
const (
	opCloseServiceHandle    uint16 = 0
	opControlService        uint16 = 1
	opDeleteService         uint16 = 2
	opQueryServiceStatus    uint16 = 6
	opCreateService         uint16 = 12
	opEnumServicesStatus    uint16 = 14
	opOpenSCManager         uint16 = 15
	opOpenService           uint16 = 16
	opQueryServiceConfig    uint16 = 17
	opStartService          uint16 = 19
	opGetServiceDisplayName uint16 = 20
	opGetServiceKeyName     uint16 = 21
)

// Wire layout constants
const (
	// handleSize is the size of an SC_RPC_HANDLE context handle in bytes
	handleSize = 20

	// statusSize is the size of a SERVICE_STATUS record: seven
	// little-endian DWORDs
	statusSize = 28

	// entrySize is the size of one ENUM_SERVICE_STATUSW record in an
	// enumeration reply buffer: two string offsets followed by an
	// embedded SERVICE_STATUS
	entrySize = 36

	// maxNegotiatedBuffer bounds the reply buffer size this client will
	// allocate when the authority reports how many bytes it needs
	maxNegotiatedBuffer = 1 << 24
)

// SERVICE_STATUS field offsets
const (
	offsetServiceType      = 0
	offsetCurrentState     = 4
	offsetControlsAccepted = 8
	offsetWin32ExitCode    = 12
	offsetServiceExitCode  = 16
	offsetCheckPoint       = 20
	offsetWaitHint         = 24
)

// ENUM_SERVICE_STATUSW field offsets. The two name fields hold offsets
// relative to the start of the enumeration reply buffer; the strings
// themselves are null-terminated UTF-16 sequences stored past the records.
const (
	offsetEntryName        = 0
	offsetEntryDisplayName = 4
	offsetEntryStatus      = 8
)
