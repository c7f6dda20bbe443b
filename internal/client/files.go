package client

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/oreanmos/copepod-go/internal/constants"
	internalhttp "github.com/oreanmos/copepod-go/internal/http"
	"github.com/oreanmos/copepod-go/pkg/copepod"
)

// uploadFieldName is the multipart part carrying the file.
const uploadFieldName = "file"

// FilesClient implements copepod.FilesClient.
type FilesClient struct {
	httpClient *internalhttp.Client
}

// NewFilesClient creates a new files client.
func NewFilesClient(httpClient *internalhttp.Client) *FilesClient {
	return &FilesClient{
		httpClient: httpClient,
	}
}

// Upload implements copepod.FilesClient.Upload. The file is sent as a single
// multipart part named "file" to the record field named by upload.Field.
func (c *FilesClient) Upload(ctx context.Context, orgID, appID string, upload *copepod.FileUpload) (copepod.Record, error) {
	body, contentType, err := encodeUpload(upload)
	if err != nil {
		return nil, copepod.NewTransportError(fmt.Errorf("encoding upload: %w", err))
	}

	path := buildPath(constants.RecordFilesPathFormat, orgID, appID, upload.Collection, upload.RecordID, upload.Field)

	resp, err := c.httpClient.PostRaw(ctx, path, body, contentType)
	if err != nil {
		return nil, fmt.Errorf("uploading file: %w", err)
	}

	record, err := decodeResponse[copepod.Record](resp, "upload response")
	if err != nil {
		return nil, err
	}

	return *record, nil
}

// Download implements copepod.FilesClient.Download.
func (c *FilesClient) Download(ctx context.Context, orgID, appID, collection, recordID, filename string) ([]byte, error) {
	resp, err := c.httpClient.Do(ctx, &internalhttp.Request{
		Method:        http.MethodGet,
		Path:          buildPath(constants.RecordFilesPathFormat, orgID, appID, collection, recordID, filename),
		Headers:       map[string]string{"Accept": "*/*"},
		ErrorFallback: constants.DownloadFailedMessage,
	})
	if err != nil {
		return nil, fmt.Errorf("downloading file: %w", err)
	}

	return resp.Body, nil
}

// Delete implements copepod.FilesClient.Delete.
func (c *FilesClient) Delete(ctx context.Context, orgID, appID, collection, recordID, filename string) error {
	_, err := c.httpClient.Delete(ctx, buildPath(constants.RecordFilesPathFormat, orgID, appID, collection, recordID, filename))
	if err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}

	return nil
}

// CreateSignedURL implements copepod.FilesClient.CreateSignedURL.
func (c *FilesClient) CreateSignedURL(ctx context.Context, appID string, request *copepod.SignedURLRequest) (*copepod.SignedURLResponse, error) {
	resp, err := c.httpClient.Post(ctx, buildPath(constants.SignURLPathFormat, appID), request)
	if err != nil {
		return nil, fmt.Errorf("creating signed url: %w", err)
	}

	return decodeResponse[copepod.SignedURLResponse](resp, "signed url")
}

// DownloadSigned implements copepod.FilesClient.DownloadSigned.
func (c *FilesClient) DownloadSigned(ctx context.Context, appID, key string) ([]byte, error) {
	resp, err := c.httpClient.Do(ctx, &internalhttp.Request{
		Method:  http.MethodGet,
		Path:    buildPath(constants.SignedFilePathFormat, appID, key),
		Headers: map[string]string{"Accept": "*/*"},
	})
	if err != nil {
		return nil, fmt.Errorf("downloading signed file: %w", err)
	}

	return resp.Body, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeUpload(upload *copepod.FileUpload) ([]byte, string, error) {
	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		uploadFieldName, quoteEscaper.Replace(upload.Filename)))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("creating form part: %w", err)
	}

	_, err = part.Write(upload.Data)
	if err != nil {
		return nil, "", fmt.Errorf("writing file data: %w", err)
	}

	err = writer.Close()
	if err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}
