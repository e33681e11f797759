package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

const MimeCSV = "text/csv"

// Error kinds returned in the response envelope so clients can branch without parsing messages.
const (
	KindNotFound         = "NOT_FOUND"
	KindForbidden        = "FORBIDDEN"
	KindExamNotAvailable = "EXAM_NOT_AVAILABLE"
	KindNotStartedYet    = "NOT_STARTED_YET"
	KindExamEnded        = "EXAM_ENDED"
	KindAlreadySubmitted = "ALREADY_SUBMITTED"
	KindConflict         = "CONFLICT"
	KindValidation       = "VALIDATION_ERROR"
)
