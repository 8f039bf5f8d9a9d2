package server

import (
	"fmt"
	"log"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// LOGIN
	s.RegisterRouteFunc("POST "+RouteAdminLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAdminLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAdminSession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAdminRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))

	// Public content API
	s.RegisterRouteFunc("GET "+RouteGetBlogs, ChainMiddleware(s.GetBlogsHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteGetBlogByID, ChainMiddleware(s.GetBlogByIDHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteGetBlogsByCategory, ChainMiddleware(s.GetBlogsByCategoryHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteSearchBlogs, ChainMiddleware(s.SearchBlogsHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteRecentBlogs, ChainMiddleware(s.RecentBlogsHandler(), s.APIMiddleware()...))

	s.RegisterRouteFunc("GET "+RouteNotices, ChainMiddleware(s.NoticesHandler(), s.APIMiddleware()...))

	// Admin routes (require an authenticated admin session)
	s.RegisterRouteFunc("GET "+RouteAdminDashboard, ChainMiddleware(s.DashboardHandler(), s.AdminMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAdminCreateBlog, ChainMiddleware(s.CreateBlogHandler(), s.AdminMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAdminUploadImage, ChainMiddleware(s.UploadImageHandler(), s.AdminMiddleware()...))
}

func logError(method, path, error string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + resetColor
	} else {
		displayMethod = gray + paddedMethod + resetColor
	}
	errorString := red + error + resetColor
	log.Printf("[%-19s] %s %s\n", displayMethod, path, errorString)
}
