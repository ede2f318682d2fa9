// Package apitest runs an in-process fake of the Distritherm REST API for tests.
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
	"github.com/go-chi/chi/v5/middleware"
)

// Record is one stored resource, kept as decoded JSON.
type Record = map[string]any

type account struct {
	password string
	user     Record
}

type collection struct {
	records    map[int64]Record
	nextID     int64
	filterable map[string]bool
}

// Upload describes a received quote file.
type Upload struct {
	Mode     string // "json" or "multipart"
	DevisID  int64
	FileName string
	EndDate  string
	Size     int
}

// Backend is the fake API. All fields are guarded by mu; use the methods.
type Backend struct {
	*httptest.Server

	mu            sync.Mutex
	accounts      map[string]account
	accessTokens  map[string]int64 // token -> user id
	refreshTokens map[string]int64
	tokenSeq      int
	refreshCalls  int
	failRefresh   bool
	refreshDelay  time.Duration
	uploadLimit   int
	collections   map[string]*collection
	requests      []string
	uploads       []Upload
	campaigns     []Record
}

// Resources served with generic CRUD routes and the query parameters they filter on.
var resources = map[string][]string{
	"users":      {"role"},
	"devis":      {"status", "commercialId", "userId"},
	"products":   {"categoryId", "markId", "isInPromotion"},
	"marks":      nil,
	"categories": {"agenceId", "parentCategoryId"},
	"agencies":   nil,
}

// New starts a backend. Close it with t.Cleanup(b.Close).
func New() *Backend {
	b := &Backend{
		accounts:      make(map[string]account),
		accessTokens:  make(map[string]int64),
		refreshTokens: make(map[string]int64),
		uploadLimit:   1 << 20,
		collections:   make(map[string]*collection),
	}
	for name, filters := range resources {
		c := &collection{records: make(map[int64]Record), nextID: 1, filterable: make(map[string]bool)}
		for _, f := range filters {
			c.filterable[f] = true
		}
		b.collections[name] = c
	}
	b.Server = httptest.NewServer(b.routes())
	return b
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(b.recordRequest)

	r.Post("/auth/regular-login", b.login)
	r.Post("/auth/refresh-token", b.refresh)

	r.Group(func(r chi.Router) {
		r.Use(b.requireAuth)

		r.Post("/auth/logout", b.logout)
		r.Get("/users/by-role", b.usersByRole)
		r.Post("/users/create-user", b.createUser)
		r.Post("/users/verify-email", b.acknowledge("Email verified"))
		r.Post("/users/send-verification", b.acknowledge("Verification email sent"))
		r.Get("/devis/by-commercial/{commercialID}", b.quotesByCommercial)
		r.Get("/devis/by-commercial/{commercialID}/{id}", b.quoteByCommercial)
		r.Post("/devis/file", b.uploadQuoteFile)
		r.Get("/products/promotions", b.promotions)
		r.Post("/campagnes/send", b.sendCampaign)

		for name := range resources {
			r.Route("/"+name, func(r chi.Router) {
				r.Get("/", b.list(name))
				r.Post("/", b.create(name))
				r.Get("/{id}", b.get(name))
				r.Put("/{id}", b.update(name))
				r.Delete("/{id}", b.delete(name))
			})
		}
	})
	return r
}

func (b *Backend) recordRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, r.Method+" "+r.URL.Path)
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		b.mu.Lock()
		_, valid := b.accessTokens[token]
		b.mu.Unlock()
		if !ok || !valid {
			writeJSON(w, http.StatusUnauthorized, Record{"message": "Unauthorized", "statusCode": http.StatusUnauthorized})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AddAccount registers login credentials for user and stores user in /users.
func (b *Backend) AddAccount(email, password string, user Record) Record {
	user = b.Seed("users", user)[0]
	b.mu.Lock()
	defer b.mu.Unlock()
	user["email"] = email
	b.accounts[email] = account{password: password, user: user}
	return user
}

// IssueTokens returns a valid access and refresh token for userID.
func (b *Backend) IssueTokens(userID int64) (string, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(userID)
}

func (b *Backend) issueLocked(userID int64) (string, string) {
	b.tokenSeq++
	access := fmt.Sprintf("access-%d", b.tokenSeq)
	refresh := fmt.Sprintf("refresh-%d", b.tokenSeq)
	b.accessTokens[access] = userID
	b.refreshTokens[refresh] = userID
	return access, refresh
}

// ExpireAccessTokens invalidates every access token issued so far.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accessTokens = make(map[string]int64)
}

// FailRefresh makes every refresh call answer 401.
func (b *Backend) FailRefresh(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failRefresh = fail
}

// SetRefreshDelay slows the refresh endpoint down to widen concurrency windows.
func (b *Backend) SetRefreshDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshDelay = d
}

// SetUploadLimit sets the maximum JSON upload body size before answering 413.
func (b *Backend) SetUploadLimit(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploadLimit = n
}

func (b *Backend) RefreshCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshCalls
}

// Requests returns "METHOD /path" for every request received.
func (b *Backend) Requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

// CountRequests returns how many requests matched "METHOD /path".
func (b *Backend) CountRequests(methodPath string) int {
	n := 0
	for _, r := range b.Requests() {
		if r == methodPath {
			n++
		}
	}
	return n
}

func (b *Backend) Uploads() []Upload {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Upload(nil), b.uploads...)
}

func (b *Backend) Campaigns() []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Record(nil), b.campaigns...)
}

// Seed stores records in resource, assigning ids where missing.
func (b *Backend) Seed(resource string, records ...Record) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := b.collections[resource]
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		id := toInt64(rec["id"])
		if id == 0 {
			id = c.nextID
		}
		if id >= c.nextID {
			c.nextID = id + 1
		}
		rec["id"] = id
		b.enrichLocked(resource, rec)
		c.records[id] = rec
		out = append(out, rec)
	}
	return out
}

// Get returns a copy of the stored record.
func (b *Backend) Get(resource string, id int64) (Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.collections[resource].records[id]
	if !ok {
		return nil, false
	}
	return copyRecord(rec), true
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, Record{"message": "Invalid body"})
		return
	}

	b.mu.Lock()
	acc, ok := b.accounts[body.Email]
	if !ok || acc.password != body.Password {
		b.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, Record{"message": "Email ou mot de passe incorrect"})
		return
	}
	access, refresh := b.issueLocked(toInt64(acc.user["id"]))
	user := copyRecord(acc.user)
	b.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: refresh, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, Record{
		"message":      "Connexion réussie",
		"accessToken":  access,
		"refreshToken": refresh,
		"user":         user,
	})
}

func (b *Backend) refresh(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh_token")
	if cookie, err := r.Cookie("refresh_token"); err == nil && cookie.Value != "" {
		refresh = cookie.Value
	}

	b.mu.Lock()
	b.refreshCalls++
	delay := b.refreshDelay
	fail := b.failRefresh
	userID, known := b.refreshTokens[refresh]
	b.mu.Unlock()

	time.Sleep(delay)
	if fail || !known {
		writeJSON(w, http.StatusUnauthorized, Record{"message": "Invalid refresh token"})
		return
	}

	b.mu.Lock()
	b.tokenSeq++
	access := fmt.Sprintf("access-%d", b.tokenSeq)
	b.accessTokens[access] = userID
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, Record{"message": "Token refreshed", "accessToken": access})
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	delete(b.accessTokens, token)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, Record{"message": "Logged out"})
}

func (b *Backend) acknowledge(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Record{"message": message})
	}
}

func (b *Backend) list(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.writePage(w, r, resource, func(Record) bool { return true })
	}
}

func (b *Backend) writePage(w http.ResponseWriter, r *http.Request, resource string, keep func(Record) bool) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	b.mu.Lock()
	c := b.collections[resource]
	matched := make([]Record, 0)
	for _, rec := range c.records {
		if !keep(rec) || !matchesFilters(c, rec, q) {
			continue
		}
		matched = append(matched, copyRecord(rec))
	}
	b.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		return toInt64(matched[i]["id"]) < toInt64(matched[j]["id"])
	})

	total := len(matched)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	lastPage := (total + limit - 1) / limit
	if lastPage == 0 {
		lastPage = 1
	}
	writeJSON(w, http.StatusOK, Record{
		"message": "OK",
		"data":    matched[start:end],
		"meta":    Record{"total": total, "page": page, "limit": limit, "lastPage": lastPage},
	})
}

func matchesFilters(c *collection, rec Record, q map[string][]string) bool {
	for key, values := range q {
		if !c.filterable[key] || len(values) == 0 || values[0] == "" {
			continue
		}
		if fmt.Sprint(normalize(rec[key])) != values[0] {
			return false
		}
	}
	return true
}

func (b *Backend) get(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := toInt64(chi.URLParam(r, "id"))
		rec, ok := b.Get(resource, id)
		if !ok {
			writeJSON(w, http.StatusNotFound, Record{"message": fmt.Sprintf("%s %d not found", resource, id)})
			return
		}
		writeJSON(w, http.StatusOK, Record{"message": "OK", "data": rec})
	}
}

func (b *Backend) create(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rec Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeJSON(w, http.StatusBadRequest, Record{"message": "Invalid body"})
			return
		}
		delete(rec, "id")
		rec["createdAt"] = time.Now().UTC().Format(time.RFC3339)
		if resource == "devis" {
			if _, ok := rec["status"]; !ok {
				rec["status"] = "PENDING"
			}
		}
		created := b.Seed(resource, rec)[0]
		writeJSON(w, http.StatusCreated, Record{"message": "Created", "data": copyRecordLocked(&b.mu, created)})
	}
}

func (b *Backend) update(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := toInt64(chi.URLParam(r, "id"))
		var patch Record
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeJSON(w, http.StatusBadRequest, Record{"message": "Invalid body"})
			return
		}

		b.mu.Lock()
		rec, ok := b.collections[resource].records[id]
		if !ok {
			b.mu.Unlock()
			writeJSON(w, http.StatusNotFound, Record{"message": fmt.Sprintf("%s %d not found", resource, id)})
			return
		}
		for k, v := range patch {
			if k == "id" {
				continue
			}
			rec[k] = v
		}
		rec["updatedAt"] = time.Now().UTC().Format(time.RFC3339)
		b.enrichLocked(resource, rec)
		out := copyRecord(rec)
		b.mu.Unlock()

		writeJSON(w, http.StatusOK, Record{"message": "Updated", "data": out})
	}
}

func (b *Backend) delete(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := toInt64(chi.URLParam(r, "id"))
		b.mu.Lock()
		_, ok := b.collections[resource].records[id]
		delete(b.collections[resource].records, id)
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusNotFound, Record{"message": fmt.Sprintf("%s %d not found", resource, id)})
			return
		}
		writeJSON(w, http.StatusOK, Record{"message": "Deleted"})
	}
}

func (b *Backend) usersByRole(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	b.writePage(w, r, "users", func(rec Record) bool { return role == "" || rec["role"] == role })
}

func (b *Backend) createUser(w http.ResponseWriter, r *http.Request) {
	var rec Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, Record{"message": "Invalid body"})
		return
	}
	email, _ := rec["email"].(string)

	b.mu.Lock()
	for _, existing := range b.collections["users"].records {
		if existing["email"] == email {
			b.mu.Unlock()
			writeJSON(w, http.StatusConflict, Record{"message": "Email already in use"})
			return
		}
	}
	b.mu.Unlock()

	delete(rec, "password")
	rec["isEmailVerified"] = false
	created := b.Seed("users", rec)[0]
	writeJSON(w, http.StatusCreated, Record{"message": "User created", "data": copyRecordLocked(&b.mu, created)})
}

func (b *Backend) quotesByCommercial(w http.ResponseWriter, r *http.Request) {
	commercialID := toInt64(chi.URLParam(r, "commercialID"))
	b.writePage(w, r, "devis", func(rec Record) bool { return toInt64(rec["commercialId"]) == commercialID })
}

func (b *Backend) quoteByCommercial(w http.ResponseWriter, r *http.Request) {
	commercialID := toInt64(chi.URLParam(r, "commercialID"))
	rec, ok := b.Get("devis", toInt64(chi.URLParam(r, "id")))
	if !ok || toInt64(rec["commercialId"]) != commercialID {
		writeJSON(w, http.StatusNotFound, Record{"message": "Devis not found"})
		return
	}
	writeJSON(w, http.StatusOK, Record{"message": "OK", "data": rec})
}

func (b *Backend) promotions(w http.ResponseWriter, r *http.Request) {
	b.writePage(w, r, "products", func(rec Record) bool { return rec["isInPromotion"] == true })
}

func (b *Backend) uploadQuoteFile(w http.ResponseWriter, r *http.Request) {
	var up Upload
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(256 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, Record{"message": err.Error()})
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Record{"message": "file is required"})
			return
		}
		file.Close()
		up = Upload{
			Mode:     "multipart",
			DevisID:  toInt64(r.FormValue("devisId")),
			FileName: header.Filename,
			EndDate:  r.FormValue("endDate"),
			Size:     int(header.Size),
		}
	} else {
		b.mu.Lock()
		limit := b.uploadLimit
		b.mu.Unlock()
		if r.ContentLength > int64(limit) {
			writeJSON(w, http.StatusRequestEntityTooLarge, Record{"message": "request entity too large"})
			return
		}
		var body struct {
			DevisID  int64  `json:"devisId"`
			EndDate  string `json:"endDate"`
			FileName string `json:"fileName"`
			File     string `json:"file"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, Record{"message": "Invalid body"})
			return
		}
		up = Upload{Mode: "json", DevisID: body.DevisID, FileName: body.FileName, EndDate: body.EndDate, Size: len(body.File)}
	}

	b.mu.Lock()
	rec, ok := b.collections["devis"].records[up.DevisID]
	if ok {
		rec["fileUrl"] = "/uploads/devis/" + up.FileName
		rec["endDate"] = up.EndDate
		b.uploads = append(b.uploads, up)
	}
	var out Record
	if ok {
		out = copyRecord(rec)
	}
	b.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, Record{"message": "Devis not found"})
		return
	}
	writeJSON(w, http.StatusOK, Record{"message": "File uploaded", "data": out})
}

func (b *Backend) sendCampaign(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, Record{"message": err.Error()})
		return
	}
	rec := Record{}
	for k, v := range r.MultipartForm.Value {
		rec[k] = v[0]
	}
	attachments := make([]string, 0)
	for _, headers := range r.MultipartForm.File {
		for _, h := range headers {
			attachments = append(attachments, h.Filename)
		}
	}
	rec["attachments"] = attachments

	b.mu.Lock()
	b.campaigns = append(b.campaigns, rec)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, Record{"message": "Campagne envoyée", "data": Record{"sent": true}})
}

// enrichLocked adds the joined fields the real backend computes.
func (b *Backend) enrichLocked(resource string, rec Record) {
	switch resource {
	case "devis":
		cid := toInt64(rec["commercialId"])
		if cid == 0 {
			delete(rec, "commercial")
			return
		}
		commercial := Record{"id": cid, "userId": cid}
		if u, ok := b.collections["users"].records[cid]; ok {
			commercial["user"] = copyRecord(u)
		}
		rec["commercial"] = commercial
	case "categories":
		if a, ok := b.collections["agencies"].records[toInt64(rec["agenceId"])]; ok {
			rec["agenceName"] = a["name"]
		}
	case "products":
		if m, ok := b.collections["marks"].records[toInt64(rec["markId"])]; ok {
			rec["markName"] = m["name"]
		}
		if c, ok := b.collections["categories"].records[toInt64(rec["categoryId"])]; ok {
			rec["categoryName"] = c["name"]
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func copyRecord(rec Record) Record {
	raw, _ := json.Marshal(rec)
	var out Record
	_ = json.Unmarshal(raw, &out)
	return out
}

func copyRecordLocked(mu *sync.Mutex, rec Record) Record {
	mu.Lock()
	defer mu.Unlock()
	return copyRecord(rec)
}

func normalize(v any) any {
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return int64(f)
	}
	return v
}

func toInt64(v any) int64 {
	switch val := v.(type) {
	case int:
		return int64(val)
	case int64:
		return val
	case float64:
		return int64(val)
	case json.Number:
		n, _ := val.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(val, 10, 64)
		return n
	}
	return 0
}
