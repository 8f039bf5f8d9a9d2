package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Admin Routes - sign-in lifecycle
	RouteAdminLogin   = "/admin/login"
	RouteAdminLogout  = "/admin/logout"
	RouteAdminSession = "/admin/session"
	RouteAdminRefresh = "/admin/session/refresh"

	// Admin Routes - authoring (guarded)
	RouteAdminDashboard   = "/admin/dashboard"
	RouteAdminCreateBlog  = "/admin/create-blog"
	RouteAdminUploadImage = "/admin/upload-image"

	// Public content API routes
	RouteGetBlogs           = "/api/get-blogs"
	RouteGetBlogByID        = "/api/get-blog-by-id"
	RouteGetBlogsByCategory = "/api/get-blogs-by-category"
	RouteSearchBlogs        = "/api/search-blogs"
	RouteRecentBlogs        = "/api/recent-blogs"

	// Notices queued for the next page render
	RouteNotices = "/api/notices"

	RouteHealth = "/health"
)
