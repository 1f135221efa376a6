package dataset

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	syntheticStates     = []string{"SP", "RJ", "MG", "RS", "PR", "SC", "BA", "DF", "GO", "ES", "PE", "CE"}
	syntheticCategories = []string{
		"cama_mesa_banho", "beleza_saude", "esporte_lazer", "moveis_decoracao",
		"informatica_acessorios", "utilidades_domesticas", "relogios_presentes",
		"telefonia", "ferramentas_jardim", "automotivo",
	}
)

type GenerateOptions struct {
	Customers int
	Orders    int
	Products  int
	Sellers   int
	Start     time.Time
	Span      time.Duration
	Seed      int64
}

func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Customers: 1000,
		Orders:    5000,
		Products:  200,
		Sellers:   50,
		Start:     time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC),
		Span:      365 * 24 * time.Hour,
		Seed:      1,
	}
}

// Generate builds a synthetic snapshot. The same options always produce the
// same tables, ids included.
func Generate(opts GenerateOptions) *Tables {
	def := DefaultGenerateOptions()
	if opts.Customers <= 0 {
		opts.Customers = def.Customers
	}
	if opts.Orders <= 0 {
		opts.Orders = def.Orders
	}
	if opts.Products <= 0 {
		opts.Products = def.Products
	}
	if opts.Sellers <= 0 {
		opts.Sellers = def.Sellers
	}
	if opts.Start.IsZero() {
		opts.Start = def.Start
	}
	if opts.Span <= 0 {
		opts.Span = def.Span
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	newID := func() string {
		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			// math/rand never fails to read
			panic(err)
		}
		return id.String()
	}

	t := &Tables{}
	zips := make(map[string]struct{})
	addZip := func(state string) string {
		zip := fmt.Sprintf("%05d", rng.Intn(99999)+1)
		if _, ok := zips[zip]; !ok {
			zips[zip] = struct{}{}
			t.Geolocation = append(t.Geolocation, Geolocation{
				ZipCodePrefix: zip,
				Lat:           -33.0 + rng.Float64()*30.0,
				Lng:           -73.0 + rng.Float64()*38.0,
				City:          "cidade-" + zip,
				State:         state,
			})
		}
		return zip
	}

	for i := 0; i < opts.Customers; i++ {
		state := syntheticStates[rng.Intn(len(syntheticStates))]
		t.Customers = append(t.Customers, Customer{
			CustomerID:       newID(),
			CustomerUniqueID: newID(),
			ZipCodePrefix:    addZip(state),
			City:             "cidade",
			State:            state,
		})
	}
	for i := 0; i < opts.Sellers; i++ {
		state := syntheticStates[rng.Intn(len(syntheticStates))]
		t.Sellers = append(t.Sellers, Seller{
			SellerID:      newID(),
			ZipCodePrefix: addZip(state),
			City:          "cidade",
			State:         state,
		})
	}
	for i := 0; i < opts.Products; i++ {
		t.Products = append(t.Products, Product{
			ProductID: newID(),
			Category:  syntheticCategories[rng.Intn(len(syntheticCategories))],
		})
	}

	for i := 0; i < opts.Orders; i++ {
		orderID := newID()
		customer := t.Customers[rng.Intn(len(t.Customers))]
		offset := time.Duration(rng.Int63n(int64(opts.Span))).Truncate(time.Second)
		t.Orders = append(t.Orders, Order{
			OrderID:           orderID,
			CustomerID:        customer.CustomerID,
			Status:            "delivered",
			PurchaseTimestamp: opts.Start.Add(offset),
		})

		lines := 1 + rng.Intn(3)
		for seq := 1; seq <= lines; seq++ {
			t.OrderItems = append(t.OrderItems, OrderItem{
				OrderID:      orderID,
				ItemSeq:      seq,
				ProductID:    t.Products[rng.Intn(len(t.Products))].ProductID,
				SellerID:     t.Sellers[rng.Intn(len(t.Sellers))].SellerID,
				Price:        decimal.New(int64(500+rng.Intn(49500)), -2),
				FreightValue: decimal.New(int64(rng.Intn(5000)), -2),
			})
		}

		if rng.Intn(10) < 8 {
			t.Reviews = append(t.Reviews, Review{
				ReviewID: newID(),
				OrderID:  orderID,
				Score:    1 + rng.Intn(5),
			})
		}
	}

	return t
}
