package nav

import (
	"testing"

	"snap2sell/models"
)

func TestHomeFor(t *testing.T) {
	cases := map[models.Role]string{
		models.RoleFarmer:   Farmer,
		models.RoleConsumer: Marketplace,
		models.RoleBuyer:    Marketplace,
		models.RoleAdmin:    Admin,
	}
	for role, want := range cases {
		if got := HomeFor(role); got != want {
			t.Errorf("HomeFor(%s) = %s, want %s", role, got, want)
		}
	}
}

func TestResolve(t *testing.T) {
	consumer := Viewer{Authenticated: true, Role: models.RoleConsumer}
	farmer := Viewer{Authenticated: true, Role: models.RoleFarmer}
	guest := Viewer{}

	tests := []struct {
		name string
		path string
		v    Viewer
		want Decision
	}{
		{"public home", "/", guest, Decision{Allow: true}},
		{"guest login", "/login", guest, Decision{Allow: true}},
		{"authenticated login", "/login", consumer, Decision{Redirect: Home}},
		{"authenticated signup", "/signup/", farmer, Decision{Redirect: Home}},
		{"guest marketplace", "/marketplace", guest, Decision{Redirect: Login}},
		{"consumer marketplace", "/marketplace", consumer, Decision{Allow: true}},
		{"farmer on consumer page", "/cart", farmer, Decision{Redirect: Farmer}},
		{"consumer on farmer page", "/farmer", consumer, Decision{Redirect: Marketplace}},
		{"buyer is a consumer", "/orders", Viewer{Authenticated: true, Role: models.RoleBuyer}, Decision{Allow: true}},
		{"product detail", "/product/p1?tab=reviews", consumer, Decision{Allow: true}},
		{"product without id", "/product/", consumer, Decision{Redirect: Home}},
		{"assistant any role", "/ai-assistant", farmer, Decision{Allow: true}},
		{"unknown", "/nope", consumer, Decision{Redirect: Home}},
		{"restoring", "/cart", Viewer{Loading: true}, Decision{Wait: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.path, tt.v); got != tt.want {
				t.Fatalf("Resolve(%q) = %+v, want %+v", tt.path, got, tt.want)
			}
		})
	}
}

func TestProductPath(t *testing.T) {
	if got := ProductPath("p1"); got != "/product/p1" {
		t.Fatalf("ProductPath = %s", got)
	}
}
