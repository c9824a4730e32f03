package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/kasirku/pos-sync-backend/internal/model"
	"github.com/kasirku/pos-sync-backend/internal/remote"
	"github.com/kasirku/pos-sync-backend/internal/repository"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	store, err := repository.Open(filepath.Join(t.TempDir(), "pos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.RunMigrations(context.Background()))
	return store
}

func intp(v int) *int       { return &v }
func int64p(v int64) *int64 { return &v }

// fakeStore emulates the remote store API in memory: paginated
// collection reads, order create/update and the reference search the
// exporter uses for idempotency.
type fakeStore struct {
	mu          sync.Mutex
	products    []remote.Product
	variations  map[int64][]remote.Variation
	customers   []remote.Customer
	orders      []remote.Order
	nextOrderID int64
	createCalls int
	updateCalls int
	failNext    int // serve this many 500s before behaving again

	srv *httptest.Server
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()
	f := &fakeStore{variations: map[int64][]remote.Variation{}, nextOrderID: 9000}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		f.serveCollection(w, r, func() any { return f.products })
	})
	mux.HandleFunc("GET /products/{id}/variations", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		f.serveCollection(w, r, func() any { return f.variations[id] })
	})
	mux.HandleFunc("GET /customers", func(w http.ResponseWriter, r *http.Request) {
		f.serveCollection(w, r, func() any { return f.customers })
	})
	mux.HandleFunc("GET /orders", f.handleOrderSearch)
	mux.HandleFunc("GET /orders/{id}", f.handleGetOrder)
	mux.HandleFunc("POST /orders", f.handleCreateOrder)
	mux.HandleFunc("PUT /orders/{id}", f.handleUpdateOrder)
	mux.HandleFunc("GET /system_status", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"environment":{"version":"8.4.0"},"settings":{"currency":"IDR"}}`)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeStore) client() *remote.Client {
	return remote.NewClient(remote.Config{
		BaseURL:        f.srv.URL,
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
		Timeout:        2 * time.Second,
		MaxRetries:     0,
		RetryDelay:     time.Millisecond,
	})
}

// gate consumes one injected failure, reporting whether the request may
// proceed.
func (f *fakeStore) gate(w http.ResponseWriter) bool {
	if f.failNext > 0 {
		f.failNext--
		w.WriteHeader(http.StatusInternalServerError)
		return false
	}
	return true
}

func (f *fakeStore) serveCollection(w http.ResponseWriter, r *http.Request, items func() any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.gate(w) {
		return
	}
	// everything fits on one page in tests
	if r.URL.Query().Get("page") != "1" {
		fmt.Fprint(w, `[]`)
		return
	}
	w.Header().Set(remote.HeaderTotalPages, "1")
	out := items()
	if out == nil {
		fmt.Fprint(w, `[]`)
		return
	}
	json.NewEncoder(w).Encode(out)
}

func (f *fakeStore) handleOrderSearch(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.gate(w) {
		return
	}
	search := r.URL.Query().Get("search")
	matches := []remote.Order{}
	for _, o := range f.orders {
		if search == "" || o.Reference() == search {
			matches = append(matches, o)
		}
	}
	json.NewEncoder(w).Encode(matches)
}

func (f *fakeStore) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.gate(w) {
		return
	}
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	for _, o := range f.orders {
		if o.ID == id {
			json.NewEncoder(w).Encode(o)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprint(w, `{"message":"order not found"}`)
}

func (f *fakeStore) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.gate(w) {
		return
	}
	var o remote.Order
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message":"bad order payload"}`)
		return
	}
	o.ID = f.nextOrderID
	f.nextOrderID++
	f.orders = append(f.orders, o)
	f.createCalls++
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(o)
}

func (f *fakeStore) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.gate(w) {
		return
	}
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	var in remote.Order
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message":"bad order payload"}`)
		return
	}
	for i := range f.orders {
		if f.orders[i].ID == id {
			in.ID = id
			f.orders[i] = in
			f.updateCalls++
			json.NewEncoder(w).Encode(in)
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprint(w, `{"message":"order not found"}`)
}

func (f *fakeStore) seedOrder(o remote.Order) remote.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.ID == 0 {
		o.ID = f.nextOrderID
		f.nextOrderID++
	}
	f.orders = append(f.orders, o)
	return o
}

func (f *fakeStore) orderByID(id int64) *remote.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.orders {
		if f.orders[i].ID == id {
			o := f.orders[i]
			return &o
		}
	}
	return nil
}

func seedLocalProduct(t *testing.T, store *repository.Store, externalID int64, qty int, manageStock bool) *model.Product {
	t.Helper()
	p := &model.Product{
		ExternalID:    &externalID,
		SKU:           fmt.Sprintf("SKU-%d", externalID),
		Name:          fmt.Sprintf("Product %d", externalID),
		Price:         10000,
		Status:        "publish",
		ManageStock:   manageStock,
		StockQuantity: qty,
	}
	require.NoError(t, store.SaveImportedProduct(context.Background(), p, nil))
	return p
}

func seedLocalOrder(t *testing.T, store *repository.Store, reference string, items ...model.OrderItem) *model.Order {
	t.Helper()
	if len(items) == 0 {
		items = []model.OrderItem{{Name: "Es Teh", Quantity: 1, Price: 5000}}
	}
	o := &model.Order{
		Reference:     reference,
		Status:        model.OrderStatusPaid,
		PaymentMethod: model.PaymentCash,
		Total:         5000,
		Items:         items,
	}
	require.NoError(t, store.CreateOrder(context.Background(), o))
	return o
}
