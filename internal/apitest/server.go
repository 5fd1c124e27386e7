// Package apitest is an in-memory restaurant backend for tests.
//
// It implements the HTTP contract the client consumes: cookie sessions carried as a
// signed JWT, per-session carts, a catalog with stock, orders and the admin endpoints.
// Hooks allow tests to delay responses, force failures and omit payloads.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
)

// CookieName is the session cookie set by the backend.
const CookieName = "token"

// Route keys used by hooks, e.g. "POST /carts/add".
const (
	RouteVerify       = "GET /users/verify"
	RouteSignIn       = "POST /users/signin"
	RouteRegister     = "POST /users/register"
	RouteLogout       = "POST /users/logout"
	RouteGetCart      = "GET /carts"
	RouteAddToCart    = "POST /carts/add"
	RouteUpdateCart   = "PUT /carts/update"
	RouteRemove       = "DELETE /carts/remove/{productId}"
	RouteProducts     = "GET /products/getProducts"
	RouteProduct      = "GET /products/{id}"
	RouteCategories   = "GET /category/getCategories"
	RouteCreateOrder  = "POST /orders/createOrder"
	RouteOrders       = "GET /orders/getOrders"
	RouteOrderStatus  = "PUT /orders/updateOrderStatus/{id}"
	RouteOrderDelete  = "DELETE /orders/deleteOrder/{id}"
	RouteAdminList    = "GET /admin/getProducts"
	RouteAdminAdd     = "POST /admin/addProduct"
	RouteAdminUpdate  = "PUT /admin/updateProduct/{id}"
	RouteAdminDelete  = "DELETE /admin/deleteProduct/{id}"
)

// User is a seeded account.
type User struct {
	ID       string
	Name     string
	Email    string
	Password string
	Role     string
}

// Product is a seeded catalog entry.
type Product struct {
	ID              string
	Name            string
	Description     string
	Price           decimal.Decimal
	DiscountPercent decimal.Decimal
	Stock           int
	CoverImage      string
	CategoryID      string
	Featured        bool
	OnSale          bool
}

// Category is a seeded category.
type Category struct {
	ID   string
	Name string
}

// Order is a placed order.
type Order struct {
	ID              string
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	Notes           string
	Lines           []Line
	Status          string
	OrderDate       time.Time
}

// Line is a product/quantity pair.
type Line struct {
	ProductID string
	Quantity  int
}

// Failure is a forced response for one request.
type Failure struct {
	Status  int
	Message string
}

// Server is the fake backend. Zero value is not usable; call New.
type Server struct {
	*httptest.Server

	key []byte

	mu         sync.Mutex
	users      map[string]*User // by email
	products   map[string]*Product
	order      []string // product ids in insertion order
	categories []Category
	carts      map[string][]Line // by session subject
	orders     []*Order
	revoked    map[string]bool // logged-out tokens
	hits       map[string]int
	fails      map[string][]Failure
	delay      func(route string, n int) time.Duration
	omitRemove bool
	omitUser   bool
}

// New starts a fake backend. Close it with t.Cleanup(srv.Close).
func New() *Server {
	s := &Server{
		key:      []byte("apitest-signing-key"),
		users:    map[string]*User{},
		products: map[string]*Product{},
		carts:    map[string][]Line{},
		revoked:  map[string]bool{},
		hits:     map[string]int{},
		fails:    map[string][]Failure{},
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	h := func(route string, fn http.HandlerFunc) (string, string, http.HandlerFunc) {
		method, pattern, _ := strings.Cut(route, " ")
		return method, pattern, s.hook(route, fn)
	}
	for _, rt := range []struct {
		route string
		fn    http.HandlerFunc
	}{
		{RouteVerify, s.verify},
		{RouteSignIn, s.signIn},
		{RouteRegister, s.register},
		{RouteLogout, s.logout},
		{RouteGetCart, s.getCart},
		{RouteAddToCart, s.addToCart},
		{RouteUpdateCart, s.updateCart},
		{RouteRemove, s.removeFromCart},
		{RouteProducts, s.listProducts},
		{RouteProduct, s.getProduct},
		{RouteCategories, s.listCategories},
		{RouteCreateOrder, s.createOrder},
		{RouteOrders, s.admin(s.listOrders)},
		{RouteOrderStatus, s.admin(s.updateOrderStatus)},
		{RouteOrderDelete, s.admin(s.deleteOrder)},
		{RouteAdminList, s.admin(s.listProducts)},
		{RouteAdminAdd, s.admin(s.addProduct)},
		{RouteAdminUpdate, s.admin(s.updateProduct)},
		{RouteAdminDelete, s.admin(s.deleteProduct)},
	} {
		r.Method(h(rt.route, rt.fn))
	}
	return r
}

/************ seeding & hooks ************/

// AddUser seeds an account and returns it.
func (s *Server) AddUser(u User) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = newID()
	}
	cp := u
	s.users[strings.ToLower(u.Email)] = &cp
	return u
}

// AddProduct seeds a product and returns it.
func (s *Server) AddProduct(p Product) Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = newID()
	}
	if _, ok := s.products[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	cp := p
	s.products[p.ID] = &cp
	return p
}

// AddCategory seeds a category.
func (s *Server) AddCategory(c Category) Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = newID()
	}
	s.categories = append(s.categories, c)
	return c
}

// FailNext queues a forced response for the next request to route.
func (s *Server) FailNext(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails[route] = append(s.fails[route], Failure{Status: status, Message: message})
}

// SetDelay installs a function deciding how long the n-th (1-based) response on
// route is held after the request has been applied.
func (s *Server) SetDelay(fn func(route string, n int) time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = fn
}

// OmitRemovePayload makes remove acknowledge without returning the cart.
func (s *Server) OmitRemovePayload(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitRemove = v
}

// OmitUserPayload makes signin/register acknowledge without the user object.
func (s *Server) OmitUserPayload(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitUser = v
}

// Hits returns how many requests reached route.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// Stock returns the current stock of a product.
func (s *Server) Stock(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[id]; ok {
		return p.Stock
	}
	return 0
}

// Orders returns a copy of the placed orders.
func (s *Server) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out
}

// hook counts, applies forced failures and then holds the response per the delay function.
func (s *Server) hook(route string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[route]++
		n := s.hits[route]
		var forced *Failure
		if q := s.fails[route]; len(q) > 0 {
			forced = &q[0]
			s.fails[route] = q[1:]
		}
		delay := s.delay
		s.mu.Unlock()

		rec := httptest.NewRecorder()
		if forced != nil {
			writeJSON(rec, forced.Status, map[string]any{"message": forced.Message})
		} else {
			fn(rec, r)
		}
		if delay != nil {
			if d := delay(route, n); d > 0 {
				select {
				case <-time.After(d):
				case <-r.Context().Done():
					return
				}
			}
		}
		for k, v := range rec.Header() {
			w.Header()[k] = v
		}
		w.WriteHeader(rec.Code)
		_, _ = w.Write(rec.Body.Bytes())
	}
}

/************ sessions ************/

type claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

func (s *Server) issue(w http.ResponseWriter, subject, role string) string {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        newID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Role: role,
	}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.key)
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: tok, Path: "/", HttpOnly: true})
	return tok
}

// subject resolves the session; when none exists and create is set an anonymous one is issued.
func (s *Server) subject(w http.ResponseWriter, r *http.Request, create bool) (sub string, user *User) {
	if ck, err := r.Cookie(CookieName); err == nil {
		var c claims
		tok, err := jwt.ParseWithClaims(ck.Value, &c, func(*jwt.Token) (any, error) { return s.key, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err == nil && tok.Valid && !s.revoked[c.ID] {
			return c.Subject, s.userByID(c.Subject)
		}
	}
	if !create {
		return "", nil
	}
	sub = "anon:" + newID()
	s.issue(w, sub, "")
	return sub, nil
}

func (s *Server) userByID(id string) *User {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func userJSON(u *User) map[string]any {
	return map[string]any{"_id": u.ID, "name": u.Name, "email": u.Email, "role": u.Role}
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, u := s.subject(w, r, false)
	if u == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Not authenticated"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": userJSON(u)})
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var in struct{ Email, Password string }
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(in.Email)]
	if !ok || u.Password != in.Password {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid email or password"})
		return
	}
	s.issue(w, u.ID, u.Role)
	out := map[string]any{"message": "Logged in", "role": u.Role}
	if !s.omitUser {
		out["user"] = userJSON(u)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var in struct{ Name, Email, Password string }
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(in.Email)
	if _, exists := s.users[key]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "User already exists"})
		return
	}
	u := &User{ID: newID(), Name: in.Name, Email: in.Email, Password: in.Password, Role: "user"}
	s.users[key] = u
	s.issue(w, u.ID, u.Role)
	out := map[string]any{"message": "Registered"}
	if !s.omitUser {
		out["user"] = userJSON(u)
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ck, err := r.Cookie(CookieName); err == nil {
		var c claims
		if _, _, err := jwt.NewParser().ParseUnverified(ck.Value, &c); err == nil {
			s.revoked[c.ID] = true
		}
	}
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]any{"message": "Logged out"})
}

// admin guards fn behind an authenticated admin session.
func (s *Server) admin(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		_, u := s.subject(w, r, false)
		s.mu.Unlock()
		switch {
		case u == nil:
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Not authenticated"})
		case strings.ToLower(strings.TrimSpace(u.Role)) != "admin":
			writeJSON(w, http.StatusForbidden, map[string]any{"message": "Admins only"})
		default:
			fn(w, r)
		}
	}
}

/************ carts ************/

func (s *Server) cartJSON(sub string) map[string]any {
	items := make([]map[string]any, 0, len(s.carts[sub]))
	for _, l := range s.carts[sub] {
		if p, ok := s.products[l.ProductID]; ok {
			items = append(items, map[string]any{"product": s.productJSON(p), "quantity": l.Quantity})
		} else {
			items = append(items, map[string]any{"product": l.ProductID, "quantity": l.Quantity})
		}
	}
	return map[string]any{"_id": "cart-" + sub, "items": items}
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, _ := s.subject(w, r, true)
	if _, ok := s.carts[sub]; !ok {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Cart is empty"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cart": s.cartJSON(sub)})
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ProductID string `json:"productId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, _ := s.subject(w, r, true)
	p, ok := s.products[in.ProductID]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Product not found"})
		return
	}
	lines := s.carts[sub]
	idx := indexOf(lines, p.ID)
	have := 0
	if idx >= 0 {
		have = lines[idx].Quantity
	}
	if have+1 > p.Stock {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Out of stock"})
		return
	}
	next := append([]Line(nil), lines...)
	if idx >= 0 {
		next[idx].Quantity++
	} else {
		next = append(next, Line{ProductID: p.ID, Quantity: 1})
	}
	s.carts[sub] = next
	writeJSON(w, http.StatusOK, map[string]any{"message": "Added", "cart": s.cartJSON(sub)})
}

func (s *Server) updateCart(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, _ := s.subject(w, r, true)
	if in.Quantity < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Quantity must be at least 1"})
		return
	}
	lines := s.carts[sub]
	idx := indexOf(lines, in.ProductID)
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Item not in cart"})
		return
	}
	if p, ok := s.products[in.ProductID]; ok && in.Quantity > p.Stock {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Not enough stock"})
		return
	}
	next := append([]Line(nil), lines...)
	next[idx].Quantity = in.Quantity
	s.carts[sub] = next
	writeJSON(w, http.StatusOK, map[string]any{"cart": s.cartJSON(sub)})
}

func (s *Server) removeFromCart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productId")
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, _ := s.subject(w, r, true)
	lines := s.carts[sub]
	idx := indexOf(lines, id)
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Item not in cart"})
		return
	}
	next := append(append([]Line(nil), lines[:idx]...), lines[idx+1:]...)
	s.carts[sub] = next
	if s.omitRemove {
		writeJSON(w, http.StatusOK, map[string]any{"message": "Removed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Removed", "cart": s.cartJSON(sub)})
}

func indexOf(lines []Line, productID string) int {
	for i, l := range lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

/************ catalog ************/

func (s *Server) categoryJSON(id string) any {
	for _, c := range s.categories {
		if c.ID == id {
			return map[string]any{"_id": c.ID, "name": c.Name}
		}
	}
	if id == "" {
		return nil
	}
	return id
}

func (s *Server) productJSON(p *Product) map[string]any {
	return map[string]any{
		"_id":             p.ID,
		"name":            p.Name,
		"description":     p.Description,
		"price":           p.Price,
		"discountPercent": p.DiscountPercent.String(),
		"stock":           p.Stock,
		"coverImage":      p.CoverImage,
		"category":        s.categoryJSON(p.CategoryID),
		"isFeautred":      p.Featured,
		"isOnSale":        p.OnSale,
	}
}

func (s *Server) listProducts(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.order))
	for _, id := range s.order {
		if p, ok := s.products[id]; ok {
			out = append(out, s.productJSON(p))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Product not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": s.productJSON(p)})
}

func (s *Server) listCategories(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, map[string]any{"_id": c.ID, "name": c.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": out})
}

func (s *Server) categoryByName(name string) string {
	for _, c := range s.categories {
		if strings.EqualFold(c.Name, name) {
			return c.ID
		}
	}
	c := Category{ID: newID(), Name: name}
	s.categories = append(s.categories, c)
	return c.ID
}

func formProduct(r *http.Request, p *Product) error {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return err
	}
	p.Name = r.FormValue("name")
	p.Description = r.FormValue("description")
	price, err := decimal.NewFromString(r.FormValue("price"))
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}
	p.Price = price
	if p.Stock, err = strconv.Atoi(r.FormValue("stock")); err != nil {
		return fmt.Errorf("stock: %w", err)
	}
	if v := r.FormValue("discountPercent"); v != "" {
		if p.DiscountPercent, err = decimal.NewFromString(v); err != nil {
			return fmt.Errorf("discountPercent: %w", err)
		}
	}
	p.Featured = r.FormValue("isFeautred") == "true" || r.FormValue("isFeatured") == "true"
	p.OnSale = r.FormValue("isOnSale") == "true"
	if _, fh, err := r.FormFile("coverImage"); err == nil {
		p.CoverImage = fh.Filename
	}
	return nil
}

func (s *Server) addProduct(w http.ResponseWriter, r *http.Request) {
	p := &Product{ID: newID()}
	if err := formProduct(r, p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"msg": err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if name := strings.TrimSpace(r.FormValue("categoryName")); name != "" {
		p.CategoryID = s.categoryByName(name)
	}
	s.products[p.ID] = p
	s.order = append(s.order, p.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Product added", "product": s.productJSON(p)})
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	cur, ok := s.products[id]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Product not found"})
		return
	}
	next := *cur
	if err := formProduct(r, &next); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"msg": err.Error()})
		return
	}
	if c := r.FormValue("category"); c != "" {
		next.CategoryID = c
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id] = &next
	writeJSON(w, http.StatusOK, map[string]any{"message": "Product updated", "product": s.productJSON(&next)})
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Product not found"})
		return
	}
	delete(s.products, id)
	for i, pid := range s.order {
		if pid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Product deleted"})
}

/************ orders ************/

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var in struct {
		CustomerName    string `json:"customerName"`
		CustomerPhone   string `json:"customerPhone"`
		CustomerAddress string `json:"customerAddress"`
		Notes           string `json:"notes"`
		Items           []struct {
			ProductID string `json:"productId"`
			Quantity  int    `json:"quantity"`
		} `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"msg": "Invalid body"})
		return
	}
	if in.CustomerName == "" || in.CustomerPhone == "" || in.CustomerAddress == "" || len(in.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"msg": "Missing required fields"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o := &Order{
		ID:              newID(),
		CustomerName:    in.CustomerName,
		CustomerPhone:   in.CustomerPhone,
		CustomerAddress: in.CustomerAddress,
		Notes:           in.Notes,
		Status:          "pending",
		OrderDate:       time.Now().UTC(),
	}
	for _, it := range in.Items {
		p, ok := s.products[it.ProductID]
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]any{"msg": "Unknown product " + it.ProductID})
			return
		}
		if it.Quantity > p.Stock {
			writeJSON(w, http.StatusBadRequest, map[string]any{"msg": "Not enough stock for " + p.Name})
			return
		}
		o.Lines = append(o.Lines, Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	for _, l := range o.Lines {
		s.products[l.ProductID].Stock -= l.Quantity
	}
	s.orders = append(s.orders, o)
	if sub, _ := s.subject(w, r, false); sub != "" {
		delete(s.carts, sub)
	}
	writeJSON(w, http.StatusCreated, map[string]any{"msg": "Order created", "orderId": o.ID})
}

func (s *Server) orderJSON(o *Order) map[string]any {
	items := make([]map[string]any, 0, len(o.Lines))
	total := decimal.Zero
	for _, l := range o.Lines {
		it := map[string]any{"product": l.ProductID, "quantity": l.Quantity}
		if p, ok := s.products[l.ProductID]; ok {
			price := p.Price
			if p.DiscountPercent.IsPositive() {
				price = price.Sub(price.Mul(p.DiscountPercent).Div(decimal.NewFromInt(100)))
			}
			it["product"] = s.productJSON(p)
			it["name"] = p.Name
			it["price"] = price
			total = total.Add(price.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
		items = append(items, it)
	}
	return map[string]any{
		"_id":             o.ID,
		"customerName":    o.CustomerName,
		"customerPhone":   o.CustomerPhone,
		"customerAddress": o.CustomerAddress,
		"notes":           o.Notes,
		"items":           items,
		"totalAmount":     total,
		"status":          o.Status,
		"orderDate":       o.OrderDate.Format(time.RFC3339),
	}
}

func (s *Server) listOrders(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sorted := append([]*Order(nil), s.orders...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OrderDate.After(sorted[j].OrderDate) })
	out := make([]map[string]any, 0, len(sorted))
	for _, o := range sorted {
		out = append(out, s.orderJSON(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": out})
}

func (s *Server) findOrder(id string) *Order {
	for _, o := range s.orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status string `json:"status"`
	}
	_ = json.NewDecoder(r.Body).Decode(&in)
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.findOrder(chi.URLParam(r, "id"))
	if o == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Order not found"})
		return
	}
	o.Status = in.Status
	writeJSON(w, http.StatusOK, map[string]any{"message": "Status updated", "order": s.orderJSON(o)})
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.orders {
		if o.ID == id {
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]any{"message": "Order deleted"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": "Order not found"})
}

/************ helpers ************/

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newID() string {
	return strings.ReplaceAll(uuid.Must(uuid.NewV4()).String(), "-", "")
}
