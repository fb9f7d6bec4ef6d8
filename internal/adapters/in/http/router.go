// internal/adapters/in/http/router.go
package httpin

import (
	"net/http"

	"cartsync/internal/adapters/in/http/handler"
	"cartsync/internal/adapters/in/http/middleware"
	query "cartsync/internal/application/query"
	usecase "cartsync/internal/application/usecase"
)

// RouterDeps collects the dependencies injected from the DI container.
type RouterDeps struct {
	Engine   *usecase.CartEngine
	CartView *query.CartViewService
	Notices  *handler.NoticeHub

	FirebaseAuth *middleware.FirebaseAuthClient
}

// NewRouter mounts the cart engine's HTTP surface:
//
//	GET/DELETE /cart, POST/PUT/DELETE /cart/items, POST /cart/flush,
//	GET /cart/events, POST /login, POST /logout
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	cartHandler := handler.NewCartHandler(deps.Engine, deps.CartView)
	mux.Handle("/cart", cartHandler)
	mux.Handle("/cart/items", cartHandler)
	mux.Handle("/cart/flush", cartHandler)

	mux.Handle("/cart/events", handler.NewEventsHandler(deps.Engine, deps.Notices))

	sessionHandler := handler.NewSessionHandler(deps.Engine)
	mux.Handle("/login", sessionHandler)
	mux.Handle("/logout", sessionHandler)

	auth := middleware.NewAuth(deps.FirebaseAuth)
	return auth.Middleware(mux)
}
