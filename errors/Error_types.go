package errors

// ERR is the error code carried by every *Error.
type ERR int32

const (
	ERR_UNKNOWN             ERR = 0
	ERR_INVALID_ARGUMENT    ERR = 1
	ERR_PROCESSING          ERR = 4
	ERR_CONFIGURATION       ERR = 5
	ERR_CONTEXT_CANCELED    ERR = 7
	ERR_ABORTED             ERR = 10
	ERR_BLOCK_NOT_FOUND     ERR = 20
	ERR_BLOCK_INVALID       ERR = 21
	ERR_BLOCK_EXISTS        ERR = 22
	ERR_BLOCK_ERROR         ERR = 23
	ERR_TX_ALREADY_EXISTS   ERR = 32
	ERR_SERVICE_NOT_STARTED ERR = 41
	ERR_SERVICE_ERROR       ERR = 42
	ERR_STORAGE_UNAVAILABLE ERR = 50
	ERR_STORAGE_NOT_STARTED ERR = 51
	ERR_STORAGE_ERROR       ERR = 52
	ERR_SPENT               ERR = 60
	ERR_UTXO_SPENT          ERR = 61
	ERR_SCRIPT_PARSE        ERR = 80
)

var ERR_name = map[int32]string{
	0:  "UNKNOWN",
	1:  "INVALID_ARGUMENT",
	4:  "PROCESSING",
	5:  "CONFIGURATION",
	7:  "CONTEXT_CANCELED",
	10: "ABORTED",
	20: "BLOCK_NOT_FOUND",
	21: "BLOCK_INVALID",
	22: "BLOCK_EXISTS",
	23: "BLOCK_ERROR",
	32: "TX_ALREADY_EXISTS",
	41: "SERVICE_NOT_STARTED",
	42: "SERVICE_ERROR",
	50: "STORAGE_UNAVAILABLE",
	51: "STORAGE_NOT_STARTED",
	52: "STORAGE_ERROR",
	60: "SPENT",
	61: "UTXO_SPENT",
	80: "SCRIPT_PARSE",
}

func (x ERR) String() string {
	if name, ok := ERR_name[int32(x)]; ok {
		return name
	}

	return "UNKNOWN"
}

var (
	ErrUnknown            = New(ERR_UNKNOWN, "unknown error")
	ErrInvalidArgument    = New(ERR_INVALID_ARGUMENT, "invalid argument")
	ErrProcessing         = New(ERR_PROCESSING, "error processing")
	ErrConfiguration      = New(ERR_CONFIGURATION, "configuration error")
	ErrContextCanceled    = New(ERR_CONTEXT_CANCELED, "context canceled")
	ErrAborted            = New(ERR_ABORTED, "aborted")
	ErrBlockNotFound      = New(ERR_BLOCK_NOT_FOUND, "block not found")
	ErrBlockInvalid       = New(ERR_BLOCK_INVALID, "block invalid")
	ErrBlockExists        = New(ERR_BLOCK_EXISTS, "block exists")
	ErrBlockError         = New(ERR_BLOCK_ERROR, "block error")
	ErrTxAlreadyExists    = New(ERR_TX_ALREADY_EXISTS, "tx already exists")
	ErrServiceNotStarted  = New(ERR_SERVICE_NOT_STARTED, "service not started")
	ErrServiceError       = New(ERR_SERVICE_ERROR, "service error")
	ErrStorageUnavailable = New(ERR_STORAGE_UNAVAILABLE, "storage unavailable")
	ErrStorageNotStarted  = New(ERR_STORAGE_NOT_STARTED, "storage not started")
	ErrStorageError       = New(ERR_STORAGE_ERROR, "storage error")
	ErrSpent              = New(ERR_SPENT, "utxo already spent")
	ErrScriptParse        = New(ERR_SCRIPT_PARSE, "script parse error")
)

// errors initialization functions

func NewInvalidArgumentError(message string, params ...interface{}) error {
	return New(ERR_INVALID_ARGUMENT, message, params...)
}
func NewProcessingError(message string, params ...interface{}) error {
	return New(ERR_PROCESSING, message, params...)
}
func NewConfigurationError(message string, params ...interface{}) error {
	return New(ERR_CONFIGURATION, message, params...)
}
func NewContextCanceledError(message string, params ...interface{}) error {
	return New(ERR_CONTEXT_CANCELED, message, params...)
}
func NewAbortedError(message string, params ...interface{}) error {
	return New(ERR_ABORTED, message, params...)
}
func NewBlockNotFoundError(message string, params ...interface{}) error {
	return New(ERR_BLOCK_NOT_FOUND, message, params...)
}
func NewBlockInvalidError(message string, params ...interface{}) error {
	return New(ERR_BLOCK_INVALID, message, params...)
}
func NewBlockExistsError(message string, params ...interface{}) error {
	return New(ERR_BLOCK_EXISTS, message, params...)
}
func NewBlockError(message string, params ...interface{}) error {
	return New(ERR_BLOCK_ERROR, message, params...)
}
func NewTxAlreadyExistsError(message string, params ...interface{}) error {
	return New(ERR_TX_ALREADY_EXISTS, message, params...)
}
func NewServiceNotStartedError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_NOT_STARTED, message, params...)
}
func NewServiceError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_ERROR, message, params...)
}
func NewStorageUnavailableError(message string, params ...interface{}) error {
	return New(ERR_STORAGE_UNAVAILABLE, message, params...)
}
func NewStorageNotStartedError(message string, params ...interface{}) error {
	return New(ERR_STORAGE_NOT_STARTED, message, params...)
}
func NewStorageError(message string, params ...interface{}) error {
	return New(ERR_STORAGE_ERROR, message, params...)
}
func NewSpentError(message string, params ...interface{}) error {
	return New(ERR_SPENT, message, params...)
}
func NewScriptParseError(message string, params ...interface{}) error {
	return New(ERR_SCRIPT_PARSE, message, params...)
}
