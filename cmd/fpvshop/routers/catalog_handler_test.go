package routers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/AlexeySalamakhin/fpvshop/cmd/fpvshop/models"
)

const nazgul = `{"name":"Nazgul5","price":55,"mrp":100,"category":"Drones","platform":"amazon","url":"https://example.com/nazgul"}`

func decodeProducts(t *testing.T, body []byte) []models.ProductResponse {
	t.Helper()
	var ps []models.ProductResponse
	if err := json.Unmarshal(body, &ps); err != nil {
		t.Fatalf("decode products: %v, body %s", err, body)
	}
	return ps
}

func TestCatalogEndpoints(t *testing.T) {
	app := newTestApp(t)
	admin := app.register(t, "admin")
	pilot := app.register(t, "pilot")

	createTests := []struct {
		name  string
		token string
		body  string
		want  int
	}{
		{"regular user", pilot, nazgul, http.StatusForbidden},
		{"unauthenticated", "", nazgul, http.StatusUnauthorized},
		{"bad json", admin, `{`, http.StatusBadRequest},
		{"no price", admin, `{"name":"x","category":"drones","platform":"amazon","url":"https://example.com"}`, http.StatusBadRequest},
		{"created", admin, nazgul, http.StatusCreated},
		{"created without mrp", admin, `{"name":"Crossfire","price":60,"category":"radios","platform":"amazon","url":"https://example.com/tbs"}`, http.StatusCreated},
	}
	var created models.ProductResponse
	for _, tt := range createTests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, http.MethodPost, "/api/admin/products", tt.token, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status %d, want %d, body %s", rec.Code, tt.want, rec.Body)
			}
			if tt.name == "created" {
				if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
					t.Fatalf("decode: %v", err)
				}
			}
		})
	}
	if created.ID == 0 || created.Category != "drones" || created.Discount != 45 {
		t.Fatalf("created product = %+v", created)
	}

	listTests := []struct {
		path string
		want int
	}{
		{"/api/products", 2},
		{"/api/products?category=all", 2},
		{"/api/products?category=drones", 1},
		{"/api/products?q=cross", 1},
		{"/api/products?category=goggles", 0},
		{"/api/products/deals", 1},
	}
	for _, tt := range listTests {
		t.Run(tt.path, func(t *testing.T) {
			rec := app.do(t, http.MethodGet, tt.path, "", "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status %d", rec.Code)
			}
			if ps := decodeProducts(t, rec.Body.Bytes()); len(ps) != tt.want {
				t.Fatalf("got %d products, want %d", len(ps), tt.want)
			}
		})
	}

	productPath := "/api/products/" + strconv.FormatInt(created.ID, 10)
	if rec := app.do(t, http.MethodGet, productPath, "", ""); rec.Code != http.StatusOK {
		t.Fatalf("get product: status %d", rec.Code)
	}
	if rec := app.do(t, http.MethodGet, "/api/products/999", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown product: status %d, want 404", rec.Code)
	}
	if rec := app.do(t, http.MethodGet, "/api/products/abc", "", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: status %d, want 400", rec.Code)
	}
}

func TestFavouriteEndpoints(t *testing.T) {
	app := newTestApp(t)
	admin := app.register(t, "admin")
	pilot := app.register(t, "pilot")

	rec := app.do(t, http.MethodPost, "/api/admin/products", admin, nazgul)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product: status %d", rec.Code)
	}
	var p models.ProductResponse
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	favPath := "/api/user/favourites/" + strconv.FormatInt(p.ID, 10)

	steps := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"add", http.MethodPut, favPath, pilot, http.StatusNoContent},
		{"add again", http.MethodPut, favPath, pilot, http.StatusNoContent},
		{"add unknown", http.MethodPut, "/api/user/favourites/999", pilot, http.StatusNotFound},
		{"add unauthenticated", http.MethodPut, favPath, "", http.StatusUnauthorized},
		{"bad id", http.MethodPut, "/api/user/favourites/-1", pilot, http.StatusBadRequest},
	}
	for _, st := range steps {
		if rec := app.do(t, st.method, st.path, st.token, ""); rec.Code != st.want {
			t.Fatalf("%s: status %d, want %d", st.name, rec.Code, st.want)
		}
	}

	rec = app.do(t, http.MethodGet, "/api/user/favourites", pilot, "")
	if ps := decodeProducts(t, rec.Body.Bytes()); len(ps) != 1 || ps[0].ID != p.ID {
		t.Fatalf("favourites = %+v", ps)
	}

	if rec := app.do(t, http.MethodDelete, favPath, pilot, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("remove: status %d", rec.Code)
	}
	rec = app.do(t, http.MethodGet, "/api/user/favourites", pilot, "")
	if ps := decodeProducts(t, rec.Body.Bytes()); len(ps) != 0 {
		t.Fatalf("favourites after remove = %+v", ps)
	}
}

func TestWalletEndpoints(t *testing.T) {
	app := newTestApp(t)
	admin := app.register(t, "admin")
	pilot := app.register(t, "pilot")

	app.placeConfirmed(t, pilot, "79927398713", "1200")
	app.placeConfirmed(t, pilot, "12345678903", "1300")
	if rec := app.do(t, http.MethodPost, "/api/user/spin", pilot, ""); rec.Code != http.StatusOK {
		t.Fatalf("spin: status %d, body %s", rec.Code, rec.Body)
	}

	wallet := func() models.Wallet {
		t.Helper()
		rec := app.do(t, http.MethodGet, "/api/user/wallet", pilot, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("wallet: status %d", rec.Code)
		}
		var w models.Wallet
		if err := json.NewDecoder(rec.Body).Decode(&w); err != nil {
			t.Fatalf("decode wallet: %v", err)
		}
		return w
	}
	if w := wallet(); w != (models.Wallet{Pending: 20}) {
		t.Fatalf("wallet = %+v, want 20 pending", w)
	}

	rec := app.do(t, http.MethodGet, "/api/user/spins", pilot, "")
	var history []models.SpinRecordResponse
	if err := json.NewDecoder(rec.Body).Decode(&history); err != nil || len(history) != 1 {
		t.Fatalf("history = %+v, %v", history, err)
	}
	reviewPath := "/api/admin/spins/" + strconv.FormatInt(history[0].ID, 10) + "/status"

	steps := []struct {
		name  string
		token string
		body  string
		want  int
	}{
		{"not admin", pilot, `{"status":"approved"}`, http.StatusForbidden},
		{"unknown status", admin, `{"status":"lost"}`, http.StatusBadRequest},
		{"pay before approve", admin, `{"status":"paid"}`, http.StatusConflict},
		{"approve", admin, `{"status":"approved"}`, http.StatusOK},
		{"approve twice", admin, `{"status":"approved"}`, http.StatusConflict},
	}
	for _, st := range steps {
		if rec := app.do(t, http.MethodPost, reviewPath, st.token, st.body); rec.Code != st.want {
			t.Fatalf("%s: status %d, want %d, body %s", st.name, rec.Code, st.want, rec.Body)
		}
	}
	if w := wallet(); w != (models.Wallet{Available: 20}) {
		t.Fatalf("wallet = %+v, want 20 available", w)
	}
}
