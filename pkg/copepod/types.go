package copepod

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ListResult represents a paginated list response.
type ListResult[T any] struct {
	Page       int   `json:"page"        yaml:"page"`
	PerPage    int   `json:"per_page"    yaml:"per_page"`
	TotalItems int64 `json:"total_items" yaml:"total_items"`
	TotalPages int   `json:"total_pages" yaml:"total_pages"`
	Items      []T   `json:"items"       yaml:"items"`
}

// HasMore reports whether pages follow this one.
func (l *ListResult[T]) HasMore() bool {
	return l.Page < l.TotalPages
}

// PageFetcher loads one page of a list.
type PageFetcher[T any] func(ctx context.Context, page int) (*ListResult[T], error)

// FetchAllPages walks pages starting at 1 until the last one and returns every item.
func FetchAllPages[T any](ctx context.Context, fetch PageFetcher[T]) ([]T, error) {
	var all []T

	for page := 1; ; page++ {
		result, err := fetch(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("fetching page %d: %w", page, err)
		}

		all = append(all, result.Items...)

		if len(result.Items) == 0 || page >= result.TotalPages {
			return all, nil
		}
	}
}

// User represents a platform user.
type User struct {
	ID        string    `json:"id"               yaml:"id"`
	Email     string    `json:"email"            yaml:"email"`
	Name      *string   `json:"name,omitempty"   yaml:"name,omitempty"`
	Verified  bool      `json:"verified"         yaml:"verified"`
	Avatar    *string   `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	CreatedAt time.Time `json:"created"          yaml:"created"`
	UpdatedAt time.Time `json:"updated"          yaml:"updated"`
}

// AuthResponse is returned by login, refresh and MFA verification.
type AuthResponse struct {
	Token        string `json:"token"         yaml:"token"`
	RefreshToken string `json:"refresh_token" yaml:"refresh_token"`
	User         User   `json:"user"          yaml:"user"`
}

// CheckTokens returns a Decode error unless both tokens are present.
func (r *AuthResponse) CheckTokens() error {
	if r.Token == "" || r.RefreshToken == "" {
		return NewDecodeError(ErrIncompleteTokenPair)
	}

	return nil
}

// MFAChallenge is returned by login when a second factor is required.
type MFAChallenge struct {
	MFARequired bool   `json:"mfa_required" yaml:"mfa_required"`
	MFAToken    string `json:"mfa_token"    yaml:"mfa_token"`
}

// Org represents an organization.
type Org struct {
	ID        string    `json:"id"             yaml:"id"`
	Name      string    `json:"name"           yaml:"name"`
	Slug      *string   `json:"slug,omitempty" yaml:"slug,omitempty"`
	CreatedAt time.Time `json:"created"        yaml:"created"`
	UpdatedAt time.Time `json:"updated"        yaml:"updated"`
}

// OrgCreateRequest represents a request to create an organization.
type OrgCreateRequest struct {
	Name string  `json:"name"           yaml:"name"`
	Slug *string `json:"slug,omitempty" yaml:"slug,omitempty"`
}

// OrgUpdateRequest represents a request to update an organization.
type OrgUpdateRequest struct {
	Name *string `json:"name,omitempty" yaml:"name,omitempty"`
	Slug *string `json:"slug,omitempty" yaml:"slug,omitempty"`
}

// OrgMember represents a member of an organization.
type OrgMember struct {
	UserID    string    `json:"user_id"         yaml:"user_id"`
	Email     *string   `json:"email,omitempty" yaml:"email,omitempty"`
	Name      *string   `json:"name,omitempty"  yaml:"name,omitempty"`
	Role      string    `json:"role"            yaml:"role"`
	CreatedAt time.Time `json:"created"         yaml:"created"`
}

// OrgMemberRequest adds a member by user id or email.
type OrgMemberRequest struct {
	UserID string `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Email  string `json:"email,omitempty"   yaml:"email,omitempty"`
	Role   string `json:"role"              yaml:"role"`
}

// OrgMemberUpdateRequest changes a member's role.
type OrgMemberUpdateRequest struct {
	Role string `json:"role" yaml:"role"`
}

// App represents an application within an organization.
type App struct {
	ID        string    `json:"id"             yaml:"id"`
	Name      string    `json:"name"           yaml:"name"`
	Slug      *string   `json:"slug,omitempty" yaml:"slug,omitempty"`
	OrgID     string    `json:"org_id"         yaml:"org_id"`
	CreatedAt time.Time `json:"created"        yaml:"created"`
	UpdatedAt time.Time `json:"updated"        yaml:"updated"`
}

// AppCreateRequest represents a request to create an app.
type AppCreateRequest struct {
	Name string  `json:"name"           yaml:"name"`
	Slug *string `json:"slug,omitempty" yaml:"slug,omitempty"`
}

// AppUpdateRequest represents a request to update an app.
type AppUpdateRequest struct {
	Name *string `json:"name,omitempty" yaml:"name,omitempty"`
	Slug *string `json:"slug,omitempty" yaml:"slug,omitempty"`
}

// APIKey represents an API key of an application. Key is only populated on creation.
type APIKey struct {
	ID        string    `json:"id"                   yaml:"id"`
	Name      string    `json:"name"                 yaml:"name"`
	Key       *string   `json:"key,omitempty"        yaml:"key,omitempty"`
	KeyPrefix *string   `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
	Scopes    []string  `json:"scopes"               yaml:"scopes"`
	CreatedAt time.Time `json:"created"              yaml:"created"`
}

// APIKeyCreateRequest represents a request to create an API key.
type APIKeyCreateRequest struct {
	Name   string   `json:"name"             yaml:"name"`
	Scopes []string `json:"scopes,omitempty" yaml:"scopes,omitempty"`
}

// Collection represents a collection within an application.
type Collection struct {
	ID        string            `json:"id"                        yaml:"id"`
	Name      string            `json:"name"                      yaml:"name"`
	Type      *string           `json:"collection_type,omitempty" yaml:"collection_type,omitempty"`
	AppID     string            `json:"app_id"                    yaml:"app_id"`
	Fields    []CollectionField `json:"fields"                    yaml:"fields"`
	Indexes   []json.RawMessage `json:"indexes,omitempty"         yaml:"-"`
	CreatedAt time.Time         `json:"created"                   yaml:"created"`
	UpdatedAt time.Time         `json:"updated"                   yaml:"updated"`
}

// CollectionField is a field definition within a collection.
type CollectionField struct {
	Name     string          `json:"name"              yaml:"name"`
	Type     string          `json:"type"              yaml:"type"`
	Required bool            `json:"required"          yaml:"required"`
	Unique   bool            `json:"unique"            yaml:"unique"`
	Options  json.RawMessage `json:"options,omitempty" yaml:"-"`
}

// CollectionCreateRequest represents a request to create a collection.
type CollectionCreateRequest struct {
	Name   string            `json:"name"                      yaml:"name"`
	Type   *string           `json:"collection_type,omitempty" yaml:"collection_type,omitempty"`
	Fields []CollectionField `json:"fields,omitempty"          yaml:"fields,omitempty"`
}

// CollectionUpdateRequest represents a request to update a collection.
type CollectionUpdateRequest struct {
	Name   *string           `json:"name,omitempty"   yaml:"name,omitempty"`
	Fields []CollectionField `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Record is a schemaless collection record.
type Record map[string]interface{}

// ID returns the record's "id" field when it is a string.
func (r Record) ID() string {
	id, _ := r["id"].(string)

	return id
}

// RecordEvent is a realtime change to a record.
type RecordEvent struct {
	Action     string          `json:"action"     yaml:"action"`
	Collection string          `json:"collection" yaml:"collection"`
	Record     json.RawMessage `json:"record"     yaml:"-"`
}

// Decode unmarshals the event's record payload into v.
func (e *RecordEvent) Decode(v interface{}) error {
	err := json.Unmarshal(e.Record, v)
	if err != nil {
		return fmt.Errorf("decoding record payload: %w", err)
	}

	return nil
}

// FileUpload describes a file attached to a record field.
type FileUpload struct {
	Collection  string
	RecordID    string
	Field       string
	Filename    string
	ContentType string
	Data        []byte
}

// SignedURLRequest requests a time-limited download URL.
type SignedURLRequest struct {
	Key       string `json:"key"                  yaml:"key"`
	ExpiresIn *int64 `json:"expires_in,omitempty" yaml:"expires_in,omitempty"`
}

// SignedURLResponse carries a signed download URL.
type SignedURLResponse struct {
	URL       string  `json:"url"                  yaml:"url"`
	ExpiresAt *string `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}
