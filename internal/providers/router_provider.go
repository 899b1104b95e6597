package providers

import (
	"net/http"

	"snoozed/internal/structures"
)

type RouterProviderInterface interface {
	Get(url string, handler http.Handler)
	Post(url string, handler http.Handler)
	GetRoutes() []structures.Route
}

type RouterProvider struct {
	routes []structures.Route
	logger Logger
}

func (rp *RouterProvider) Get(url string, handler http.Handler) {
	rp.handle(http.MethodGet, url, handler)
}

func (rp *RouterProvider) Post(url string, handler http.Handler) {
	rp.handle(http.MethodPost, url, handler)
}

func (rp *RouterProvider) handle(method, url string, handler http.Handler) {
	rp.routes = append(rp.routes, structures.Route{
		Url:     url,
		Handler: rp.logged(methodHandler(method, handler)),
	})
}

func (rp *RouterProvider) GetRoutes() []structures.Route {
	return rp.routes
}

func NewRouterProvider(logger Logger) RouterProviderInterface {
	return &RouterProvider{logger: logger}
}

func (rp *RouterProvider) logged(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		handler.ServeHTTP(sw, r)
		rp.logger.Debugf(GetLogTypeByRequestType(r.Method), "%s %s -> %d", r.Method, r.URL.Path, sw.status)
	})
}

func methodHandler(method string, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
