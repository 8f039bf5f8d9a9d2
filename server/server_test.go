package server_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jaladseva/eseva-portal/content"
	"github.com/jaladseva/eseva-portal/content/feed/repofakes"
	"github.com/jaladseva/eseva-portal/internal/config"
	"github.com/jaladseva/eseva-portal/server"
	"github.com/jaladseva/eseva-portal/session"
)

// fakeSessionService scripts the authentication surface for handler tests.
type fakeSessionService struct {
	mu            sync.Mutex
	authenticated bool
	admin         bool
	state         session.State
	current       *session.Session
	signInResult  session.SignInResult
	signOutErr    error

	refreshSucceeds bool
	refreshDelay    time.Duration
	refreshCalls    int
}

func (f *fakeSessionService) SignIn(_ context.Context, _, _ string) session.SignInResult {
	return f.signInResult
}

func (f *fakeSessionService) SignOut(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authenticated = false
	f.admin = false
	f.current = nil
	f.state = session.StateUnauthenticated
	return f.signOutErr
}

func (f *fakeSessionService) CurrentUser(_ context.Context) *session.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeSessionService) Refresh(_ context.Context) bool {
	f.mu.Lock()
	f.refreshCalls++
	delay := f.refreshDelay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshSucceeds {
		f.authenticated = true
		f.admin = true
		f.state = session.StateAuthenticated
		return true
	}
	// A failed refresh leaves the manager unauthenticated, like the real one.
	f.state = session.StateUnauthenticated
	return false
}

func (f *fakeSessionService) IsAuthenticated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authenticated
}

func (f *fakeSessionService) IsAdmin() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.admin
}

func (f *fakeSessionService) State() session.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSessionService) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

// fakeContentAPI scripts the blog backend.
type fakeContentAPI struct {
	blogs      []content.Post
	blogsErr   error
	post       *content.Post
	postErr    error
	created    *content.CreateBlogRequest
	createdTok string
	uploaded   *content.UploadImageRequest
}

func (f *fakeContentAPI) GetBlogs(_ context.Context, _ content.BlogsQuery) (*content.BlogsPage, error) {
	if f.blogsErr != nil {
		return nil, f.blogsErr
	}
	return &content.BlogsPage{Blogs: f.blogs}, nil
}

func (f *fakeContentAPI) GetBlogByID(_ context.Context, _ string) (*content.Post, error) {
	if f.postErr != nil {
		return nil, f.postErr
	}
	return f.post, nil
}

func (f *fakeContentAPI) GetBlogsByCategory(_ context.Context, _ string) ([]content.Post, error) {
	return f.blogs, f.blogsErr
}

func (f *fakeContentAPI) SearchBlogs(_ context.Context, _ string, _ int) ([]content.Post, error) {
	return f.blogs, f.blogsErr
}

func (f *fakeContentAPI) CreateBlog(_ context.Context, draft content.CreateBlogRequest, authToken string) (*content.CreateBlogResponse, error) {
	f.created = &draft
	f.createdTok = authToken
	return &content.CreateBlogResponse{Status: "success", ID: "new-1"}, nil
}

func (f *fakeContentAPI) UploadImage(_ context.Context, req content.UploadImageRequest, _ string) (*content.UploadImageResponse, error) {
	f.uploaded = &req
	return &content.UploadImageResponse{FileURL: "https://cdn.example/img.png", Filename: req.Filename}, nil
}

type serverFixture struct {
	sessions   *fakeSessionService
	contentAPI *fakeContentAPI
	server     *server.Server
	ts         *httptest.Server
}

func setupServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	f := &serverFixture{
		sessions:   &fakeSessionService{state: session.StateUnauthenticated},
		contentAPI: &fakeContentAPI{},
	}

	srv, err := server.New(config.New(), f.sessions, f.contentAPI, repofakes.NewFakeFeedRepo())
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	f.server = srv

	f.ts = httptest.NewServer(srv)
	t.Cleanup(f.ts.Close)
	return f
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := server.New(config.New(), nil, &fakeContentAPI{}, repofakes.NewFakeFeedRepo())
	require.Error(t, err)

	_, err = server.New(config.New(), &fakeSessionService{}, nil, repofakes.NewFakeFeedRepo())
	require.Error(t, err)

	_, err = server.New(config.New(), &fakeSessionService{}, &fakeContentAPI{}, nil)
	require.Error(t, err)
}
