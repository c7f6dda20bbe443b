package copepod

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AuthClient covers session management against the platform.
type AuthClient interface {
	// Login exchanges credentials for a token pair and stores it. Accounts with a second
	// factor yield *MFARequiredError.
	Login(ctx context.Context, email, password string) (*AuthResponse, error)
	// Refresh exchanges the stored refresh token for a new pair, regardless of expiry.
	Refresh(ctx context.Context) (*AuthResponse, error)
	// Logout notifies the server and always clears the stored pair.
	Logout(ctx context.Context) error
	VerifyMFA(ctx context.Context, mfaToken, code string) (*AuthResponse, error)
	RecoverMFA(ctx context.Context, mfaToken, recoveryCode string) (*AuthResponse, error)
	Me(ctx context.Context) (*User, error)
	SetupMFA(ctx context.Context) (map[string]interface{}, error)
	EnableMFA(ctx context.Context, code string) error
	DisableMFA(ctx context.Context, code string) error
}

// OrgsClient manages organizations and their members.
type OrgsClient interface {
	List(ctx context.Context) (*ListResult[Org], error)
	Get(ctx context.Context, orgID string) (*Org, error)
	Create(ctx context.Context, request *OrgCreateRequest) (*Org, error)
	Update(ctx context.Context, orgID string, request *OrgUpdateRequest) (*Org, error)
	Delete(ctx context.Context, orgID string) error
	ListMembers(ctx context.Context, orgID string) (*ListResult[OrgMember], error)
	AddMember(ctx context.Context, orgID string, request *OrgMemberRequest) (*OrgMember, error)
	UpdateMember(ctx context.Context, orgID, userID string, request *OrgMemberUpdateRequest) (*OrgMember, error)
	RemoveMember(ctx context.Context, orgID, userID string) error
}

// AppsClient manages applications and their API keys.
type AppsClient interface {
	List(ctx context.Context, orgID string) (*ListResult[App], error)
	Get(ctx context.Context, orgID, appID string) (*App, error)
	Create(ctx context.Context, orgID string, request *AppCreateRequest) (*App, error)
	Update(ctx context.Context, orgID, appID string, request *AppUpdateRequest) (*App, error)
	Delete(ctx context.Context, orgID, appID string) error
	ListAPIKeys(ctx context.Context, orgID, appID string) (*ListResult[APIKey], error)
	CreateAPIKey(ctx context.Context, orgID, appID string, request *APIKeyCreateRequest) (*APIKey, error)
	RevokeAPIKey(ctx context.Context, orgID, appID, keyID string) error
}

// CollectionsClient manages collection schemas.
type CollectionsClient interface {
	List(ctx context.Context, orgID, appID string) (*ListResult[Collection], error)
	Get(ctx context.Context, orgID, appID, collectionID string) (*Collection, error)
	Create(ctx context.Context, orgID, appID string, request *CollectionCreateRequest) (*Collection, error)
	Update(ctx context.Context, orgID, appID, collectionID string, request *CollectionUpdateRequest) (*Collection, error)
	Delete(ctx context.Context, orgID, appID, collectionID string) error
}

// RecordsClient reads and writes collection records.
type RecordsClient interface {
	List(ctx context.Context, orgID, appID, collection string, params *RecordQueryParams) (*ListResult[Record], error)
	Get(ctx context.Context, orgID, appID, collection, recordID string, params *RecordQueryParams) (Record, error)
	Create(ctx context.Context, orgID, appID, collection string, data interface{}) (Record, error)
	Update(ctx context.Context, orgID, appID, collection, recordID string, data interface{}) (Record, error)
	Delete(ctx context.Context, orgID, appID, collection, recordID string) error
}

// FilesClient transfers record files and signed downloads.
type FilesClient interface {
	Upload(ctx context.Context, orgID, appID string, upload *FileUpload) (Record, error)
	Download(ctx context.Context, orgID, appID, collection, recordID, filename string) ([]byte, error)
	Delete(ctx context.Context, orgID, appID, collection, recordID, filename string) error
	CreateSignedURL(ctx context.Context, appID string, request *SignedURLRequest) (*SignedURLResponse, error)
	DownloadSigned(ctx context.Context, appID, key string) ([]byte, error)
}

// RealtimeClient opens record event streams.
type RealtimeClient interface {
	// Subscribe connects once using a snapshot of the current access token. The
	// subscription is not refreshed; re-subscribe after a refresh to keep streaming.
	Subscribe(ctx context.Context, orgID, appID string) (*Subscription, error)
}

// Client is the Copepod platform client. It is safe for concurrent use.
type Client interface {
	Auth() AuthClient
	Orgs() OrgsClient
	Apps() AppsClient
	Collections() CollectionsClient
	Records() RecordsClient
	Files() FilesClient
	Realtime() RealtimeClient
	Credentials() CredentialStore
	// Close releases connections held by a persister built from Config.Persistence.
	Close() error
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents client configuration for building a copepod.Client.
//
// # Authentication
//
// A client starts with the credential pair given by AccessToken/RefreshToken. When no
// AccessToken is set and a Persister (or Persistence) is configured, the last persisted
// pair is loaded instead. When Email and Password are set, copepodclient.New logs in
// during construction and the returned pair replaces any seeded one.
//
// # Refresh
//
// Before each authenticated call the client refreshes the pair when its expiry lies
// within 60 seconds, unless DisableAutoRefresh is set. Pairs obtained from login or
// refresh carry no expiry unless ExpiryFromJWT is set, in which case the access
// token's "exp" claim is used.
//
// # Timeouts and retries
//
// No call has a built-in timeout; pass a context deadline or set HTTPTimeout. Each call
// is attempted once unless RetryMax is positive.
type Config struct {
	// Required fields
	// APIEndpoint: base URL of the platform (e.g., "https://api.copepod.dev").
	// copepodclient.New trims whitespace and trailing slashes, adds "https://"
	// when no scheme is present and then appends exactly one slash.
	APIEndpoint string

	// Credentials (all optional)
	// AccessToken: pre-seeded access token.
	AccessToken string
	// RefreshToken: pre-seeded refresh token.
	RefreshToken string
	// TokenExpiresAt: expiry of the pre-seeded access token. Nil means non-expiring.
	TokenExpiresAt *time.Time
	// Email: account email used to log in during construction.
	Email string
	// Password: account password used with Email.
	Password string

	// Refresh behavior
	// DisableAutoRefresh: when true the client never refreshes proactively.
	DisableAutoRefresh bool
	// ExpiryFromJWT: when true, stored pairs take their expiry from the access
	// token's "exp" claim. Tokens that are not JWTs stay non-expiring.
	ExpiryFromJWT bool

	// Persistence
	// Persister: receives every new pair and is cleared on logout.
	Persister TokenPersister
	// Persistence: builds a Persister when Persister is nil.
	Persistence *PersisterConfig

	// Transport
	// HTTPClient: optional base HTTP client (transport, TLS, proxies).
	HTTPClient *http.Client
	// HTTPTimeout: optional overall timeout applied to the HTTP client.
	HTTPTimeout time.Duration
	// RetryMax: additional attempts for connection errors and 5xx responses. 0 disables retries.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries. Applied when RetryMax > 0.
	RetryWaitMax time.Duration
	// UserAgent: overrides the default User-Agent header sent by the client.
	UserAgent string

	// Observability
	// Debug: enables verbose HTTP request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger used by the HTTP layer.
	Logger Logger
	// MetricsRegisterer: when set, pipeline metrics are registered with it.
	MetricsRegisterer prometheus.Registerer

	// Interceptors run around every dispatched request, in order.
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
}
