package content

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// APIError is the content API's error envelope, decoded into a single typed
// value rather than probed for an "error" key.
type APIError struct {
	StatusCode int    // HTTP status, 0 when the envelope arrived with 200
	Code       int    `json:"code"`
	Err        string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Err != "" {
		return fmt.Sprintf("content api: %s (code %d)", e.Err, e.Code)
	}
	return fmt.Sprintf("content api: request failed (status %d)", e.StatusCode)
}

// envelope is the union of every response shape the API produces. Status
// distinguishes the two variants.
type envelope struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Err     string `json:"error"`
	Message string `json:"message"`

	Blogs            []Post          `json:"blogs"`
	Post             *Post           `json:"post"`
	HasMore          bool            `json:"has_more"`
	LastEvaluatedKey json.RawMessage `json:"last_evaluated_key"`

	ID       string `json:"id"`
	FileURL  string `json:"file_url"`
	Filename string `json:"filename"`
}

// Client talks to the blog REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// ClientOption modifies a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the transport (primarily for testing).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient validates the base URL and returns a Client.
func NewClient(baseURL string, options ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[content.NewClient] baseURL is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// BlogsQuery selects a page of posts. Zero values fall back to the API's
// defaults (published posts, server-side page size).
type BlogsQuery struct {
	Status           string
	Limit            int
	LastEvaluatedKey string
}

// BlogsPage is one page of posts plus the pagination cursor.
type BlogsPage struct {
	Blogs            []Post
	HasMore          bool
	LastEvaluatedKey string
}

// GetBlogs fetches a page of posts, newest first.
func (c *Client) GetBlogs(ctx context.Context, q BlogsQuery) (*BlogsPage, error) {
	params := url.Values{}
	if q.Status != "" {
		params.Set("status", q.Status)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.LastEvaluatedKey != "" {
		params.Set("last_evaluated_key", q.LastEvaluatedKey)
	}

	env, err := c.get(ctx, "/get-blogs", params)
	if err != nil {
		return nil, err
	}

	return &BlogsPage{
		Blogs:            env.Blogs,
		HasMore:          env.HasMore,
		LastEvaluatedKey: cursorString(env.LastEvaluatedKey),
	}, nil
}

// GetBlogByID fetches a single post.
func (c *Client) GetBlogByID(ctx context.Context, id string) (*Post, error) {
	if id == "" {
		return nil, errors.New("[Client.GetBlogByID] id is required")
	}

	params := url.Values{}
	params.Set("id", id)

	env, err := c.get(ctx, "/get-blog-by-id", params)
	if err != nil {
		return nil, err
	}
	if env.Post == nil {
		return nil, &APIError{Err: "post not found", Code: http.StatusNotFound}
	}
	return env.Post, nil
}

// GetBlogsByCategory fetches every post in a category.
func (c *Client) GetBlogsByCategory(ctx context.Context, category string) ([]Post, error) {
	if category == "" {
		return nil, errors.New("[Client.GetBlogsByCategory] category is required")
	}

	params := url.Values{}
	params.Set("category", category)

	env, err := c.get(ctx, "/get-blogs-by-category", params)
	if err != nil {
		return nil, err
	}
	return env.Blogs, nil
}

// SearchBlogs runs a full-text search. Queries under two characters are
// rejected locally; an empty query returns no results without a request.
func (c *Client) SearchBlogs(ctx context.Context, query string, limit int) ([]Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if len(query) < 2 {
		return nil, &APIError{Err: "search query must be at least 2 characters long"}
	}

	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	env, err := c.get(ctx, "/search-blogs", params)
	if err != nil {
		return nil, err
	}
	return env.Blogs, nil
}

// CreateBlogRequest is the compose-and-publish payload.
type CreateBlogRequest struct {
	Title          string `json:"title"`
	HTMLContent    string `json:"htmlContent"`
	ContentSummary string `json:"contentSummary"`
	Image          string `json:"image,omitempty"`
	ImageType      string `json:"imageType,omitempty"`
	StartDate      string `json:"startDate,omitempty"`
	EndDate        string `json:"endDate,omitempty"`
	Category       string `json:"category,omitempty"`
	Status         string `json:"status,omitempty"`
	PublishDate    string `json:"publishDate,omitempty"`
}

// CreateBlogResponse reports the stored post's ID.
type CreateBlogResponse struct {
	Status  string
	Message string
	ID      string
}

// CreateBlog submits a new post. authToken is the admin session's bearer
// token.
func (c *Client) CreateBlog(ctx context.Context, draft CreateBlogRequest, authToken string) (*CreateBlogResponse, error) {
	if draft.Title == "" {
		return nil, errors.New("[Client.CreateBlog] title is required")
	}

	env, err := c.post(ctx, "/create-blog", draft, authToken)
	if err != nil {
		return nil, err
	}
	return &CreateBlogResponse{Status: env.Status, Message: env.Message, ID: env.ID}, nil
}

// UploadImageRequest carries raw image bytes; the API expects base64.
type UploadImageRequest struct {
	Data        []byte
	Filename    string
	ContentType string
}

// UploadImageResponse reports where the stored image is served from.
type UploadImageResponse struct {
	FileURL  string
	Filename string
}

// UploadImage stores a post image and returns its public URL.
func (c *Client) UploadImage(ctx context.Context, req UploadImageRequest, authToken string) (*UploadImageResponse, error) {
	if len(req.Data) == 0 {
		return nil, errors.New("[Client.UploadImage] image data is required")
	}

	body := map[string]string{
		"file":        base64.StdEncoding.EncodeToString(req.Data),
		"filename":    req.Filename,
		"contentType": req.ContentType,
	}

	env, err := c.post(ctx, "/upload-to-s3", body, authToken)
	if err != nil {
		return nil, err
	}
	if env.FileURL == "" {
		return nil, &APIError{Err: "upload response carried no file URL"}
	}
	return &UploadImageResponse{FileURL: env.FileURL, Filename: env.Filename}, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*envelope, error) {
	endpoint := c.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.get] build request")
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, body any, authToken string) (*envelope, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.post] marshal body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "[Client.post] build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	return c.do(req)
}

// do executes the request and decodes the envelope. Both transport-level
// failures and the API's own error variant resolve to errors; a 200 with
// status "error" is still a failure.
func (c *Client) do(req *http.Request) (*envelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.do] content api unreachable")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.do] read response")
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{StatusCode: resp.StatusCode}
		}
		return nil, errors.Wrap(err, "[Client.do] decode response")
	}

	if env.Status == "error" || resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: env.Code, Err: env.Err, Message: env.Message}
		c.log.Debug().Str("path", req.URL.Path).Int("status", resp.StatusCode).Str("error", env.Err).Msg("content api error")
		return nil, apiErr
	}
	return &env, nil
}

// cursorString flattens the pagination cursor, which the API returns either
// as a JSON string or as a raw object to be echoed back verbatim.
func cursorString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
