package routes

import (
	"fmt"
	"net/http"

	"snap2sell/app"
	"snap2sell/newchat"
	"snap2sell/ratelim"

	"github.com/julienschmidt/httprouter"
)

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func AddSessionRoutes(router *httprouter.Router, a *app.App, rateLimiter *ratelim.RateLimiter) {
	router.GET("/api/session", sessionState(a))
	router.POST("/api/auth/login", rateLimiter.Limit(login(a)))
	router.POST("/api/auth/signup", rateLimiter.Limit(signup(a)))
	router.POST("/api/auth/logout", logout(a))
	router.PUT("/api/auth/profile", requireSession(a, updateProfile(a)))
}

func AddCartRoutes(router *httprouter.Router, a *app.App, rateLimiter *ratelim.RateLimiter) {
	router.GET("/api/cart", getCart(a))
	router.POST("/api/cart/items", rateLimiter.Limit(addToCart(a)))
	router.PUT("/api/cart/items/:productId", rateLimiter.Limit(updateCartItem(a)))
	router.DELETE("/api/cart/items/:productId", removeCartItem(a))
	router.DELETE("/api/cart", clearCart(a))
	router.POST("/api/checkout", rateLimiter.Limit(requireSession(a, checkout(a))))
}

func AddOrderRoutes(router *httprouter.Router, a *app.App, rateLimiter *ratelim.RateLimiter) {
	router.GET("/api/orders", requireSession(a, listOrders(a)))
	router.GET("/api/orders/:orderId", requireSession(a, getOrder(a)))
	router.POST("/api/orders/:orderId/cancel", rateLimiter.Limit(requireSession(a, cancelOrder(a))))
	router.GET("/api/orders/:orderId/receipt", requireSession(a, orderReceipt(a)))
}

func AddProductRoutes(router *httprouter.Router, a *app.App, rateLimiter *ratelim.RateLimiter) {
	router.GET("/api/products", listProducts(a))
	router.GET("/api/products/:productId", getProduct(a))
	router.GET("/api/products/:productId/reviews", listReviews(a))
	router.POST("/api/products/:productId/reviews", rateLimiter.Limit(requireSession(a, createReview(a))))
}

func AddAssistantRoutes(router *httprouter.Router, a *app.App, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/chatbot/ask", rateLimiter.Limit(requireSession(a, ask(a))))
	router.GET("/api/chatbot/suggestions", requireSession(a, suggestions(a)))
}

func AddNavRoutes(router *httprouter.Router, a *app.App) {
	router.GET("/api/nav/resolve", resolveRoute(a))
}

func AddNewChatRoutes(router *httprouter.Router, hub *newchat.Hub) {
	router.GET("/ws", newchat.WebSocketHandler(hub))
	router.GET("/ws/:room", newchat.WebSocketHandler(hub))
}

// RoutesWrapper registers every storefront route.
func RoutesWrapper(router *httprouter.Router, a *app.App, rateLimiter *ratelim.RateLimiter, hub *newchat.Hub) {
	router.GET("/health", Index)
	AddSessionRoutes(router, a, rateLimiter)
	AddCartRoutes(router, a, rateLimiter)
	AddOrderRoutes(router, a, rateLimiter)
	AddProductRoutes(router, a, rateLimiter)
	AddAssistantRoutes(router, a, rateLimiter)
	AddNavRoutes(router, a)
	AddNewChatRoutes(router, hub)
}
