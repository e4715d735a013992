package nav

import (
	"strings"

	"snap2sell/models"
)

const (
	Home        = "/"
	Login       = "/login"
	Signup      = "/signup"
	Farmer      = "/farmer"
	Marketplace = "/marketplace"
	Product     = "/product/:productId"
	Cart        = "/cart"
	Orders      = "/orders"
	Assistant   = "/ai-assistant"
	Admin       = "/admin"
)

// HomeFor is where a user lands after login.
func HomeFor(role models.Role) string {
	switch {
	case role == models.RoleFarmer:
		return Farmer
	case role == models.RoleAdmin:
		return Admin
	default:
		return Marketplace
	}
}

// Route is one page and who may open it.
type Route struct {
	Pattern   string
	Protected bool
	Role      models.Role // empty: any authenticated user
	GuestOnly bool        // logged-in users are sent home
}

var Routes = []Route{
	{Pattern: Home},
	{Pattern: Login, GuestOnly: true},
	{Pattern: Signup, GuestOnly: true},
	{Pattern: Farmer, Protected: true, Role: models.RoleFarmer},
	{Pattern: Marketplace, Protected: true, Role: models.RoleConsumer},
	{Pattern: Product, Protected: true, Role: models.RoleConsumer},
	{Pattern: Cart, Protected: true, Role: models.RoleConsumer},
	{Pattern: Orders, Protected: true, Role: models.RoleConsumer},
	{Pattern: Assistant, Protected: true},
	{Pattern: Admin, Protected: true, Role: models.RoleAdmin},
}

// Viewer is the part of the session routing decisions depend on.
type Viewer struct {
	Authenticated bool
	Role          models.Role
	Loading       bool
}

// Decision says whether to render the requested page or go elsewhere.
type Decision struct {
	Allow    bool   `json:"allow"`
	Wait     bool   `json:"wait,omitempty"`
	Redirect string `json:"redirect,omitempty"`
}

// Resolve gates path for v. Unknown paths go to Home.
func Resolve(path string, v Viewer) Decision {
	route, ok := Match(path)
	if !ok {
		return Decision{Redirect: Home}
	}
	if v.Loading && (route.Protected || route.GuestOnly) {
		return Decision{Wait: true}
	}
	if route.GuestOnly && v.Authenticated {
		return Decision{Redirect: Home}
	}
	if !route.Protected {
		return Decision{Allow: true}
	}
	if !v.Authenticated {
		return Decision{Redirect: Login}
	}
	if !roleMatches(route.Role, v.Role) {
		return Decision{Redirect: HomeFor(v.Role)}
	}
	return Decision{Allow: true}
}

// Match finds the route for path, honouring ":param" segments.
func Match(path string) (Route, bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	for _, r := range Routes {
		if matchPattern(r.Pattern, path) {
			return r, true
		}
	}
	return Route{}, false
}

func matchPattern(pattern, path string) bool {
	ps := strings.Split(pattern, "/")
	xs := strings.Split(path, "/")
	if len(ps) != len(xs) {
		return false
	}
	for i := range ps {
		if strings.HasPrefix(ps[i], ":") {
			if xs[i] == "" {
				return false
			}
			continue
		}
		if ps[i] != xs[i] {
			return false
		}
	}
	return true
}

func roleMatches(required, actual models.Role) bool {
	switch {
	case required == "":
		return true
	case required == models.RoleConsumer:
		return actual.IsConsumer()
	default:
		return required == actual
	}
}

// ProductPath builds the detail page path for id.
func ProductPath(id string) string {
	return strings.Replace(Product, ":productId", id, 1)
}
