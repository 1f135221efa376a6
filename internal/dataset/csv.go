package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/shopspring/decimal"
)

// File names of the olist public dataset.
const (
	OrdersFile      = "olist_orders_dataset.csv"
	OrderItemsFile  = "olist_order_items_dataset.csv"
	ProductsFile    = "olist_products_dataset.csv"
	CustomersFile   = "olist_customers_dataset.csv"
	SellersFile     = "olist_sellers_dataset.csv"
	GeolocationFile = "olist_geolocation_dataset.csv"
	ReviewsFile     = "olist_order_reviews_dataset.csv"
)

var ErrMissingColumn = errors.New("missing column")

type MissingColumnError struct {
	File   string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: %s %q", e.File, ErrMissingColumn, e.Column)
}

func (e *MissingColumnError) Unwrap() error {
	return ErrMissingColumn
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp formats found in the dataset exports.
// Values without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// ParsePrice parses a non-negative decimal amount. An empty value is zero.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %q", s)
	}
	return d, nil
}

type tableSpec struct {
	file     string
	required []string
	optional []string
}

var (
	ordersSpec = tableSpec{
		file:     OrdersFile,
		required: []string{"order_id", "customer_id", "order_purchase_timestamp"},
		optional: []string{"order_status"},
	}
	orderItemsSpec = tableSpec{
		file:     OrderItemsFile,
		required: []string{"order_id", "price"},
		optional: []string{"order_item_id", "product_id", "seller_id", "freight_value"},
	}
	productsSpec = tableSpec{
		file:     ProductsFile,
		required: []string{"product_id"},
		optional: []string{"product_category_name"},
	}
	customersSpec = tableSpec{
		file:     CustomersFile,
		required: []string{"customer_id"},
		optional: []string{"customer_unique_id", "customer_zip_code_prefix", "customer_city", "customer_state"},
	}
	sellersSpec = tableSpec{
		file:     SellersFile,
		required: []string{"seller_id"},
		optional: []string{"seller_zip_code_prefix", "seller_city", "seller_state"},
	}
	geolocationSpec = tableSpec{
		file:     GeolocationFile,
		required: []string{"geolocation_zip_code_prefix", "geolocation_lat", "geolocation_lng"},
		optional: []string{"geolocation_city", "geolocation_state"},
	}
	reviewsSpec = tableSpec{
		file:     ReviewsFile,
		required: []string{"order_id", "review_score"},
		optional: []string{"review_id"},
	}
)

// frame is a column-major string view of one CSV file.
type frame struct {
	file string
	rows int
	cols map[string][]string
}

func (f *frame) get(col string, row int) string {
	values, ok := f.cols[col]
	if !ok {
		return ""
	}
	v := strings.TrimSpace(values[row])
	if v == "NaN" {
		return ""
	}
	return v
}

func (f *frame) rowErr(row int, err error) error {
	// +2: header line and 1-based numbering
	return fmt.Errorf("%s row %d: %w", f.file, row+2, err)
}

func readFrame(dir string, spec tableSpec) (*frame, error) {
	data, err := os.ReadFile(filepath.Join(dir, spec.file))
	if err != nil {
		return nil, err
	}

	header, hasRows, err := peekCSV(data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", spec.file, err)
	}
	if !hasRows {
		return emptyFrame(spec, header)
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read %s: %w", spec.file, df.Err)
	}

	names := df.Names()
	f := &frame{file: spec.file, rows: df.Nrow(), cols: make(map[string][]string)}
	for _, col := range spec.required {
		if !slices.Contains(names, col) {
			return nil, &MissingColumnError{File: spec.file, Column: col}
		}
		f.cols[col] = df.Col(col).Records()
	}
	for _, col := range spec.optional {
		if slices.Contains(names, col) {
			f.cols[col] = df.Col(col).Records()
		}
	}
	return f, nil
}

// peekCSV returns the header and whether at least one record follows it.
// gota rejects header-only input, so that case is detected up front.
func peekCSV(data []byte) ([]string, bool, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, false, errors.New("empty file")
	}
	if err != nil {
		return nil, false, err
	}
	if _, err := r.Read(); errors.Is(err, io.EOF) {
		return header, false, nil
	}
	return header, true, nil
}

// emptyFrame is a header-only file: zero rows, same column checks.
func emptyFrame(spec tableSpec, header []string) (*frame, error) {
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	f := &frame{file: spec.file, cols: make(map[string][]string)}
	for _, col := range spec.required {
		if !slices.Contains(header, col) {
			return nil, &MissingColumnError{File: spec.file, Column: col}
		}
		f.cols[col] = nil
	}
	for _, col := range spec.optional {
		if slices.Contains(header, col) {
			f.cols[col] = nil
		}
	}
	return f, nil
}

// readOptionalFrame treats a missing file as an empty table. A header-only
// file is empty as well.
func readOptionalFrame(dir string, spec tableSpec) (*frame, error) {
	f, err := readFrame(dir, spec)
	if errors.Is(err, fs.ErrNotExist) {
		return &frame{file: spec.file}, nil
	}
	return f, err
}

// LoadCSVDir reads the dataset CSV files from dir. The orders and order
// items files are mandatory; the other tables load as empty when their file
// is absent. Rows that cannot be converted are rejected with their line
// number rather than skipped.
func LoadCSVDir(dir string) (*Tables, error) {
	t := &Tables{}

	f, err := readFrame(dir, ordersSpec)
	if err != nil {
		return nil, err
	}
	if t.Orders, err = ordersFromFrame(f); err != nil {
		return nil, err
	}

	if f, err = readFrame(dir, orderItemsSpec); err != nil {
		return nil, err
	}
	if t.OrderItems, err = orderItemsFromFrame(f); err != nil {
		return nil, err
	}

	if f, err = readOptionalFrame(dir, productsSpec); err != nil {
		return nil, err
	}
	t.Products = productsFromFrame(f)

	if f, err = readOptionalFrame(dir, customersSpec); err != nil {
		return nil, err
	}
	t.Customers = customersFromFrame(f)

	if f, err = readOptionalFrame(dir, sellersSpec); err != nil {
		return nil, err
	}
	t.Sellers = sellersFromFrame(f)

	if f, err = readOptionalFrame(dir, geolocationSpec); err != nil {
		return nil, err
	}
	if t.Geolocation, err = geolocationFromFrame(f); err != nil {
		return nil, err
	}

	if f, err = readOptionalFrame(dir, reviewsSpec); err != nil {
		return nil, err
	}
	if t.Reviews, err = reviewsFromFrame(f); err != nil {
		return nil, err
	}

	return t, nil
}

func ordersFromFrame(f *frame) ([]Order, error) {
	orders := make([]Order, 0, f.rows)
	for i := 0; i < f.rows; i++ {
		ts, err := ParseTimestamp(f.get("order_purchase_timestamp", i))
		if err != nil {
			return nil, f.rowErr(i, err)
		}
		orders = append(orders, Order{
			OrderID:           f.get("order_id", i),
			CustomerID:        f.get("customer_id", i),
			Status:            f.get("order_status", i),
			PurchaseTimestamp: ts,
		})
	}
	return orders, nil
}

func orderItemsFromFrame(f *frame) ([]OrderItem, error) {
	items := make([]OrderItem, 0, f.rows)
	// without order_item_id, items are numbered 1..n within their order
	perOrder := make(map[string]int)
	for i := 0; i < f.rows; i++ {
		price, err := ParsePrice(f.get("price", i))
		if err != nil {
			return nil, f.rowErr(i, err)
		}
		freight, err := ParsePrice(f.get("freight_value", i))
		if err != nil {
			return nil, f.rowErr(i, err)
		}
		orderID := f.get("order_id", i)
		perOrder[orderID]++
		seq := perOrder[orderID]
		if s := f.get("order_item_id", i); s != "" {
			if seq, err = strconv.Atoi(s); err != nil {
				return nil, f.rowErr(i, fmt.Errorf("invalid order_item_id %q", s))
			}
		}
		items = append(items, OrderItem{
			OrderID:      orderID,
			ItemSeq:      seq,
			ProductID:    f.get("product_id", i),
			SellerID:     f.get("seller_id", i),
			Price:        price,
			FreightValue: freight,
		})
	}
	return items, nil
}

func productsFromFrame(f *frame) []Product {
	products := make([]Product, 0, f.rows)
	for i := 0; i < f.rows; i++ {
		products = append(products, Product{
			ProductID: f.get("product_id", i),
			Category:  f.get("product_category_name", i),
		})
	}
	return products
}

func customersFromFrame(f *frame) []Customer {
	customers := make([]Customer, 0, f.rows)
	for i := 0; i < f.rows; i++ {
		customers = append(customers, Customer{
			CustomerID:       f.get("customer_id", i),
			CustomerUniqueID: f.get("customer_unique_id", i),
			ZipCodePrefix:    f.get("customer_zip_code_prefix", i),
			City:             f.get("customer_city", i),
			State:            f.get("customer_state", i),
		})
	}
	return customers
}

func sellersFromFrame(f *frame) []Seller {
	sellers := make([]Seller, 0, f.rows)
	for i := 0; i < f.rows; i++ {
		sellers = append(sellers, Seller{
			SellerID:      f.get("seller_id", i),
			ZipCodePrefix: f.get("seller_zip_code_prefix", i),
			City:          f.get("seller_city", i),
			State:         f.get("seller_state", i),
		})
	}
	return sellers
}

func geolocationFromFrame(f *frame) ([]Geolocation, error) {
	geo := make([]Geolocation, 0, f.rows)
	for i := 0; i < f.rows; i++ {
		lat, err := strconv.ParseFloat(f.get("geolocation_lat", i), 64)
		if err != nil {
			return nil, f.rowErr(i, fmt.Errorf("invalid latitude %q", f.get("geolocation_lat", i)))
		}
		lng, err := strconv.ParseFloat(f.get("geolocation_lng", i), 64)
		if err != nil {
			return nil, f.rowErr(i, fmt.Errorf("invalid longitude %q", f.get("geolocation_lng", i)))
		}
		geo = append(geo, Geolocation{
			ZipCodePrefix: f.get("geolocation_zip_code_prefix", i),
			Lat:           lat,
			Lng:           lng,
			City:          f.get("geolocation_city", i),
			State:         f.get("geolocation_state", i),
		})
	}
	return geo, nil
}

func reviewsFromFrame(f *frame) ([]Review, error) {
	reviews := make([]Review, 0, f.rows)
	// a review without an id is named after its order and position
	perOrder := make(map[string]int)
	for i := 0; i < f.rows; i++ {
		score, err := strconv.Atoi(f.get("review_score", i))
		if err != nil || score < 1 || score > 5 {
			return nil, f.rowErr(i, fmt.Errorf("invalid review_score %q", f.get("review_score", i)))
		}
		orderID := f.get("order_id", i)
		perOrder[orderID]++
		reviewID := f.get("review_id", i)
		if reviewID == "" {
			reviewID = fmt.Sprintf("%s-%d", orderID, perOrder[orderID])
		}
		reviews = append(reviews, Review{
			ReviewID: reviewID,
			OrderID:  orderID,
			Score:    score,
		})
	}
	return reviews, nil
}
