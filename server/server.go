package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jaladseva/eseva-portal/content"
	"github.com/jaladseva/eseva-portal/content/feed"
	"github.com/jaladseva/eseva-portal/internal/config"
	"github.com/jaladseva/eseva-portal/notify"
	"github.com/jaladseva/eseva-portal/session"
)

// SessionService is the authentication surface the server depends on.
type SessionService interface {
	SignIn(ctx context.Context, username, password string) session.SignInResult
	SignOut(ctx context.Context) error
	CurrentUser(ctx context.Context) *session.Session
	Refresh(ctx context.Context) bool
	IsAuthenticated() bool
	IsAdmin() bool
	State() session.State
}

// ContentAPI is the blog backend surface the server depends on.
type ContentAPI interface {
	GetBlogs(ctx context.Context, q content.BlogsQuery) (*content.BlogsPage, error)
	GetBlogByID(ctx context.Context, id string) (*content.Post, error)
	GetBlogsByCategory(ctx context.Context, category string) ([]content.Post, error)
	SearchBlogs(ctx context.Context, query string, limit int) ([]content.Post, error)
	CreateBlog(ctx context.Context, draft content.CreateBlogRequest, authToken string) (*content.CreateBlogResponse, error)
	UploadImage(ctx context.Context, req content.UploadImageRequest, authToken string) (*content.UploadImageResponse, error)
}

type Server struct {
	env        string // Environment (e.g., "DEV", "production")
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	sessions   SessionService
	contentAPI ContentAPI
	notifier   *notify.Center
	log        zerolog.Logger

	feedRepo feed.Repo
	feedLock sync.Mutex
	feeds    map[string]*feed.Feed

	// refreshGroup collapses concurrent guarded requests into one provider
	// refresh while a session is being revived.
	refreshGroup singleflight.Group
}

// Option modifies a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.log = logger }
}

func New(config config.Config, sessions SessionService, contentAPI ContentAPI, feedRepo feed.Repo, options ...Option) (*Server, error) {
	if sessions == nil {
		return nil, fmt.Errorf("[Server New] session service is required")
	}
	if contentAPI == nil {
		return nil, fmt.Errorf("[Server New] content api is required")
	}
	if feedRepo == nil {
		return nil, fmt.Errorf("[Server New] feed repo is required")
	}

	s := &Server{
		mux:        http.NewServeMux(),
		config:     config,
		sessions:   sessions,
		contentAPI: contentAPI,
		notifier:   notify.NewCenter(),
		log:        zerolog.Nop(),
		feedRepo:   feedRepo,
		feeds:      make(map[string]*feed.Feed),
	}
	for _, opt := range options {
		opt(s)
	}
	s.env = config.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close releases every feed's background timers.
func (s *Server) Close() {
	s.feedLock.Lock()
	defer s.feedLock.Unlock()
	for _, f := range s.feeds {
		f.Close()
	}
	s.feeds = make(map[string]*feed.Feed)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// feedFor returns the feed serving a scope, creating and retaining it on
// first use so its cache and timers survive across requests.
func (s *Server) feedFor(scope feed.Scope) (*feed.Feed, error) {
	s.feedLock.Lock()
	defer s.feedLock.Unlock()

	if f, ok := s.feeds[scope.Key()]; ok {
		return f, nil
	}

	f, err := feed.New(scope, s.fetchPosts, s.feedRepo,
		feed.WithTTL(s.config.GetContentCacheTTL()),
		feed.WithRetry(3, 0),
		feed.WithAutoRefresh(s.config.GetMarqueeRefreshInterval()),
		feed.WithLogger(s.log),
	)
	if err != nil {
		return nil, fmt.Errorf("[Server feedFor] failed to create feed: %w", err)
	}
	s.feeds[scope.Key()] = f
	return f, nil
}

// fetchPosts is the feed's upstream: category scopes query the category
// endpoint, the global scope pages through published posts.
func (s *Server) fetchPosts(ctx context.Context, scope feed.Scope) ([]content.Post, error) {
	if scope.Category != "" {
		return s.contentAPI.GetBlogsByCategory(ctx, scope.Category)
	}
	page, err := s.contentAPI.GetBlogs(ctx, content.BlogsQuery{Status: "published"})
	if err != nil {
		return nil, err
	}
	return page.Blogs, nil
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + resetColor
	} else {
		displayMethod = gray + paddedMethod + resetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
