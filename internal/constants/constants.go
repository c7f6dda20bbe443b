package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600

	// DownloadFilePerm is the permission for downloaded files.
	DownloadFilePerm = 0600
)

// Credential timing.
const (
	// RefreshWindow is how far ahead of expiry a credential is refreshed proactively.
	RefreshWindow = 60 * time.Second
)

// HTTP and network timeouts.
const (
	// DefaultBatchTimeout bounds a single operation inside a batch.
	DefaultBatchTimeout = 30 * time.Second

	// ShortHTTPTimeout is used by the CLI for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry and concurrency limits.
const (
	// DefaultRetryMax is zero: a call is attempted once unless retries are configured.
	DefaultRetryMax = 0

	// DefaultRetryWaitMin is the minimum wait between retries when enabled.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries when enabled.
	DefaultRetryWaitMax = 10 * time.Second

	// DefaultConcurrencyLimit limits concurrent batch operations.
	DefaultConcurrencyLimit = 5
)

// Pagination defaults.
const (
	// DefaultPerPage is the page size used by the CLI when none is given.
	DefaultPerPage = 50
)

// Request decoration.
const (
	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "copepod-go/1.0"

	// HeaderRequestID carries the per-request correlation id.
	HeaderRequestID = "X-Request-Id"

	// AccessTokenParam is the query parameter that authenticates event streams.
	AccessTokenParam = "access_token"
)

// Error messages used when a failed response carries no message.
const (
	// DefaultErrorMessage is the fallback for failed responses.
	DefaultErrorMessage = "Unknown error"

	// RefreshFailedMessage is the fallback for a failed token refresh.
	RefreshFailedMessage = "Token refresh failed"

	// DownloadFailedMessage is the fallback for a failed file download.
	DownloadFailedMessage = "Download failed"
)

// Event stream types.
const (
	// EventTypeRecord is the discriminator of frames carrying record events.
	EventTypeRecord = "record"

	// EventTypeMessage is the type of frames that carry no event field.
	EventTypeMessage = "message"
)

// Auth endpoints.
const (
	PathAuthLogin    = "api/auth/login"
	PathAuthRefresh  = "api/auth/refresh"
	PathAuthLogout   = "api/auth/logout"
	PathMFAVerify    = "api/auth/mfa/verify"
	PathMFASetup     = "api/auth/mfa/setup"
	PathMFAEnable    = "api/auth/mfa/enable"
	PathMFADisable   = "api/auth/mfa/disable"
	PathMFARecovery  = "api/platform/auth/mfa/recovery"
	PathPlatformMe   = "api/platform/auth/me"
	PathPlatformOrgs = "api/platform/orgs"
)

// Resource path formats. Segments are escaped before substitution.
const (
	OrgPathFormat            = "api/platform/orgs/%s"
	OrgMembersPathFormat     = "api/platform/orgs/%s/members"
	AppsPathFormat           = "api/orgs/%s/apps"
	CollectionsPathFormat    = "api/orgs/%s/apps/%s/collections"
	RecordsPathFormat        = "api/platform/orgs/%s/apps/%s/records/%s"
	RecordFilesPathFormat    = "api/orgs/%s/apps/%s/collections/%s/records/%s/files/%s"
	SignURLPathFormat        = "api/platform/apps/%s/files/sign"
	SignedFilePathFormat     = "api/platform/apps/%s/files/signed/%s"
	RealtimeEventsPathFormat = "api/realtime/orgs/%s/apps/%s/events"
)

// Token persistence defaults.
const (
	// DefaultRedisTokenKey is the Redis key holding the persisted credential pair.
	DefaultRedisTokenKey = "copepod:tokens"

	// DefaultNATSBucket is the JetStream KV bucket holding the persisted credential pair.
	DefaultNATSBucket = "copepod_tokens"

	// DefaultNATSTokenKey is the key within the KV bucket.
	DefaultNATSTokenKey = "tokens"
)

// Metrics.
const (
	// MetricsNamespace prefixes every exported collector.
	MetricsNamespace = "copepod"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)
