package server

// ANSI colours for DEV route logging.
const (
	resetColor = "\033[0m"
	gray       = "\033[90m"
	red        = "\033[31m"
	green      = "\033[32m"
	yellow     = "\033[33m"
	blue       = "\033[34m"
	magenta    = "\033[35m"
)

var methodColors = map[string]string{
	"GET":     green,
	"POST":    blue,
	"PUT":     yellow,
	"DELETE":  red,
	"OPTIONS": magenta,
}
