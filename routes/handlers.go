package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"snap2sell/app"
	"snap2sell/chatbot"
	"snap2sell/gateway"
	"snap2sell/models"
	"snap2sell/nav"
	"snap2sell/reviews"
	"snap2sell/utils"

	"github.com/julienschmidt/httprouter"
)

const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// respondAPIError relays a backend failure with its status and message. Transport failures
// become 502.
func respondAPIError(w http.ResponseWriter, err error, fallback string) {
	status := gateway.StatusOf(err)
	if status == 0 {
		status = http.StatusBadGateway
	}
	utils.RespondWithError(w, status, gateway.MessageFrom(err, fallback))
}

func requireSession(a *app.App, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !a.Session.IsAuthenticated(r.Context()) {
			utils.RespondWithError(w, http.StatusUnauthorized, "Not logged in")
			return
		}
		next(w, r, ps)
	}
}

func sessionState(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		state := a.Session.Snapshot(r.Context())
		home := nav.Home
		if state.User != nil {
			home = nav.HomeFor(state.User.Role)
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{
			"user":            state.User,
			"isAuthenticated": state.IsAuthenticated,
			"loading":         state.Loading,
			"home":            home,
		})
	}
}

func respondResult(w http.ResponseWriter, res any, ok bool, failStatus int) {
	if ok {
		utils.RespondWithJSON(w, http.StatusOK, res)
		return
	}
	utils.RespondWithJSON(w, failStatus, res)
}

func login(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		if !utils.ValidateEmail(body.Email) || body.Password == "" {
			utils.RespondWithError(w, http.StatusBadRequest, "Email and password are required")
			return
		}
		res := a.Session.Login(r.Context(), body.Email, body.Password)
		respondResult(w, res, res.Success, http.StatusUnauthorized)
	}
}

func signup(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var profile models.SignupProfile
		if !decodeBody(w, r, &profile) {
			return
		}
		if !utils.ValidateEmail(profile.Email) {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid email")
			return
		}
		if !utils.ValidatePassword(profile.Password) {
			utils.RespondWithError(w, http.StatusBadRequest, "Password must be at least 6 characters")
			return
		}
		if profile.Role != "" && !profile.Role.Valid() {
			utils.RespondWithError(w, http.StatusBadRequest, "Invalid role")
			return
		}
		res := a.Session.Signup(r.Context(), profile)
		respondResult(w, res, res.Success, http.StatusBadRequest)
	}
}

func logout(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		a.Session.Logout(r.Context())
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"success": true, "next": nav.Home})
	}
}

func updateProfile(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var patch models.ProfilePatch
		if !decodeBody(w, r, &patch) {
			return
		}
		res := a.Session.UpdateProfile(r.Context(), patch)
		respondResult(w, res, res.Success, http.StatusBadRequest)
	}
}

func cartBody(a *app.App, items []models.LineItem) utils.M {
	return utils.M{
		"items": items,
		"count": len(items),
		"total": models.CartTotal(items),
		"stale": a.Cart.Stale(),
	}
}

func getCart(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		utils.RespondWithJSON(w, http.StatusOK, cartBody(a, a.Cart.Get(r.Context())))
	}
}

func addToCart(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var p models.CartProduct
		if !decodeBody(w, r, &p) {
			return
		}
		if strings.TrimSpace(p.ProductID) == "" {
			utils.RespondWithError(w, http.StatusBadRequest, "product_id is required")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, cartBody(a, a.Cart.Add(r.Context(), p)))
	}
}

func updateCartItem(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var body struct {
			Quantity int `json:"quantity"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		items := a.Cart.UpdateQuantity(r.Context(), ps.ByName("productId"), body.Quantity)
		utils.RespondWithJSON(w, http.StatusOK, cartBody(a, items))
	}
}

func removeCartItem(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		items := a.Cart.Remove(r.Context(), ps.ByName("productId"))
		utils.RespondWithJSON(w, http.StatusOK, cartBody(a, items))
	}
}

func clearCart(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		utils.RespondWithJSON(w, http.StatusOK, cartBody(a, a.Cart.Clear(r.Context())))
	}
}

func checkout(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body struct {
			ShippingAddress string `json:"shipping_address"`
		}
		if r.ContentLength != 0 && !decodeBody(w, r, &body) {
			return
		}
		if body.ShippingAddress == "" {
			if u := a.Session.User(); u != nil {
				body.ShippingAddress = u.Address
			}
		}
		out := a.Checkout.Submit(r.Context(), body.ShippingAddress)
		if out.Success {
			utils.RespondWithJSON(w, http.StatusCreated, out)
			return
		}
		status := gateway.StatusOf(out.Err)
		if status == 0 {
			status = http.StatusBadRequest
		}
		utils.RespondWithJSON(w, status, out)
	}
}

func listOrders(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		opts := utils.ParseQueryOptions(r)
		page, err := a.Orders.List(r.Context(), opts.Page, opts.Limit, models.OrderFilter{Status: models.OrderStatus(opts.Status)})
		if err != nil {
			respondAPIError(w, err, "Failed to load orders")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, page)
	}
}

func getOrder(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		order, err := a.Orders.Get(r.Context(), ps.ByName("orderId"))
		if err != nil {
			respondAPIError(w, err, "Failed to load order")
			return
		}
		utils.RespondWithData(w, http.StatusOK, order)
	}
}

func cancelOrder(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if err := a.Orders.Cancel(r.Context(), ps.ByName("orderId")); err != nil {
			respondAPIError(w, err, "Failed to cancel order")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"status": "success", "message": "Order cancelled"})
	}
}

func orderReceipt(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		order, err := a.Orders.Get(r.Context(), ps.ByName("orderId"))
		if err != nil {
			respondAPIError(w, err, "Failed to load order")
			return
		}
		pdf, err := a.Receipts.Render(order, a.Session.User())
		if err != nil {
			a.Log.WithError(err).WithField("orderId", order.OrderID).Error("Render receipt error")
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to render receipt")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="receipt-`+order.OrderID+`.pdf"`)
		w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
		_, _ = w.Write(pdf)
	}
}

func listProducts(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		opts := utils.ParseQueryOptions(r)
		page, err := a.Products.List(r.Context(), opts.Page, opts.Limit, models.ProductFilter{
			Category: opts.Category,
			Search:   opts.Search,
		})
		if err != nil {
			respondAPIError(w, err, "Failed to load products")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, page)
	}
}

func getProduct(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		p, err := a.Products.Get(r.Context(), ps.ByName("productId"))
		if err != nil {
			respondAPIError(w, err, "Product not found")
			return
		}
		utils.RespondWithData(w, http.StatusOK, p)
	}
}

func listReviews(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		list, err := a.Reviews.ForProduct(r.Context(), ps.ByName("productId"))
		if err != nil {
			respondAPIError(w, err, "Failed to load reviews")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{
			"data":           list,
			"average_rating": reviews.AverageRating(list),
		})
	}
}

func createReview(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var in models.ReviewInput
		if !decodeBody(w, r, &in) {
			return
		}
		err := a.Reviews.Create(r.Context(), ps.ByName("productId"), in)
		if errors.Is(err, reviews.ErrInvalidReview) {
			utils.RespondWithError(w, http.StatusBadRequest, "Rating must be between 1 and 5")
			return
		}
		if err != nil {
			respondAPIError(w, err, "Failed to submit review")
			return
		}
		utils.RespondWithJSON(w, http.StatusCreated, utils.M{"status": "success", "message": "Review submitted"})
	}
}

func ask(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var body struct {
			Question string `json:"question"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		q, err := chatbot.ValidateQuestion(body.Question)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		answer, err := a.Chatbot.Ask(r.Context(), q)
		if err != nil {
			respondAPIError(w, err, chatbot.ErrorAnswer)
			return
		}
		utils.RespondWithData(w, http.StatusOK, answer)
	}
}

func suggestions(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		list, err := a.Chatbot.Suggestions(r.Context())
		if err != nil {
			respondAPIError(w, err, "Failed to load suggestions")
			return
		}
		utils.RespondWithData(w, http.StatusOK, models.Suggestions{Suggestions: list})
	}
}

func resolveRoute(a *app.App) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		path := r.URL.Query().Get("path")
		if path == "" {
			path = nav.Home
		}
		state := a.Session.Snapshot(r.Context())
		viewer := nav.Viewer{Authenticated: state.IsAuthenticated, Loading: state.Loading}
		if state.User != nil {
			viewer.Role = state.User.Role
		}
		utils.RespondWithJSON(w, http.StatusOK, nav.Resolve(path, viewer))
	}
}
