package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	"github.com/jaladseva/eseva-portal/content"
	"github.com/jaladseva/eseva-portal/content/feed"
)

// GetBlogsHandler proxies a page of posts from the content API.
func (s *Server) GetBlogsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))

		page, err := s.contentAPI.GetBlogs(r.Context(), content.BlogsQuery{
			Status:           q.Get("status"),
			Limit:            limit,
			LastEvaluatedKey: q.Get("last_evaluated_key"),
		})
		if err != nil {
			s.writeContentError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":             "success",
			"blogs":              page.Blogs,
			"has_more":           page.HasMore,
			"last_evaluated_key": page.LastEvaluatedKey,
		})
	}
}

// GetBlogByIDHandler proxies a single post.
func (s *Server) GetBlogByIDHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "id is required")
			return
		}

		post, err := s.contentAPI.GetBlogByID(r.Context(), id)
		if err != nil {
			s.writeContentError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "post": post})
	}
}

// GetBlogsByCategoryHandler proxies a category listing.
func (s *Server) GetBlogsByCategoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := r.URL.Query().Get("category")
		if category == "" {
			writeError(w, http.StatusBadRequest, "category is required")
			return
		}

		posts, err := s.contentAPI.GetBlogsByCategory(r.Context(), category)
		if err != nil {
			s.writeContentError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "blogs": posts})
	}
}

// SearchBlogsHandler proxies a full-text search.
func (s *Server) SearchBlogsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))

		posts, err := s.contentAPI.SearchBlogs(r.Context(), q.Get("q"), limit)
		if err != nil {
			s.writeContentError(w, r, err)
			return
		}
		if posts == nil {
			posts = []content.Post{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "blogs": posts})
	}
}

// RecentBlogsHandler serves the marquee feed: recent posts for a scope from
// the local cache, revalidating in the background per the feed's TTL.
func (s *Server) RecentBlogsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		days, _ := strconv.Atoi(q.Get("days"))
		if days <= 0 {
			days = s.config.GetMarqueeDays()
		}
		maxItems, _ := strconv.Atoi(q.Get("max"))
		if maxItems <= 0 {
			maxItems = s.config.GetMarqueeMaxItems()
		}
		scope := feed.NewScope(q.Get("category"), days, maxItems)

		f, err := s.feedFor(scope)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "feed unavailable")
			return
		}

		if q.Get("refresh") == "true" {
			f.Refresh(r.Context())
		} else {
			f.Load(r.Context(), true, 0)
		}

		snap := f.Current()
		body := map[string]any{
			"status":    "success",
			"blogs":     snap.Posts,
			"fromCache": snap.FromCache,
			"stale":     snap.Stale,
		}
		if snap.Message != "" {
			body["message"] = snap.Message
		}
		writeJSON(w, http.StatusOK, body)
	}
}

type createBlogForm struct {
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

// CreateBlogHandler submits a new post on behalf of the signed-in admin.
func (s *Server) CreateBlogHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form createBlogForm
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if form.Title == "" || form.HTMLContent == "" {
			writeError(w, http.StatusBadRequest, "title and htmlContent are required")
			return
		}

		current := s.sessions.CurrentUser(r.Context())
		if current == nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		resp, err := s.contentAPI.CreateBlog(r.Context(), content.CreateBlogRequest(form), current.AccessToken)
		if err != nil {
			s.writeContentError(w, r, err)
			return
		}

		s.notifier.Success("Post created")
		writeJSON(w, http.StatusCreated, map[string]any{
			"status":  "success",
			"id":      resp.ID,
			"message": resp.Message,
		})
	}
}

type uploadImageForm struct {
	File        string `json:"file"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// UploadImageHandler stores a post image and returns its public URL.
func (s *Server) UploadImageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form uploadImageForm
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		data, err := base64.StdEncoding.DecodeString(form.File)
		if err != nil || len(data) == 0 {
			writeError(w, http.StatusBadRequest, "file must be non-empty base64 data")
			return
		}

		current := s.sessions.CurrentUser(r.Context())
		if current == nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		resp, err := s.contentAPI.UploadImage(r.Context(), content.UploadImageRequest{
			Data:        data,
			Filename:    form.Filename,
			ContentType: form.ContentType,
		}, current.AccessToken)
		if err != nil {
			s.writeContentError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "success",
			"file_url": resp.FileURL,
			"filename": resp.Filename,
		})
	}
}

// writeContentError translates content API failures, keeping the upstream
// code and message when the API produced them.
func (s *Server) writeContentError(w http.ResponseWriter, r *http.Request, err error) {
	logError(r.Method, r.URL.Path, err.Error())

	var apiErr *content.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.StatusCode
		if status == 0 {
			status = http.StatusBadGateway
			if apiErr.Code >= 400 && apiErr.Code < 600 {
				status = apiErr.Code
			}
		}
		writeJSON(w, status, map[string]any{
			"status": "error",
			"code":   apiErr.Code,
			"error":  apiErr.Err,
		})
		return
	}

	writeError(w, http.StatusBadGateway, "content service unavailable")
}
