package dataset

func GetOrdersSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(255) PRIMARY KEY,
			customer_id VARCHAR(255) NOT NULL,
			status VARCHAR(32) NOT NULL,
			purchase_timestamp TIMESTAMP NOT NULL
		);
	`
}

func GetOrderItemsSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS order_items (
			order_id VARCHAR(255) NOT NULL,
			item_seq INT NOT NULL,
			product_id VARCHAR(255) NOT NULL,
			seller_id VARCHAR(255) NOT NULL,
			price DECIMAL(10, 2) NOT NULL,
			freight_value DECIMAL(10, 2) NOT NULL,
			PRIMARY KEY (order_id, item_seq)
		);
	`
}

func GetProductsSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(255) PRIMARY KEY,
			category VARCHAR(255) NOT NULL
		);
	`
}

func GetCustomersSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS customers (
			id VARCHAR(255) PRIMARY KEY,
			unique_id VARCHAR(255) NOT NULL,
			zip_code_prefix VARCHAR(16) NOT NULL,
			city VARCHAR(255) NOT NULL,
			state VARCHAR(8) NOT NULL
		);
	`
}

func GetSellersSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS sellers (
			id VARCHAR(255) PRIMARY KEY,
			zip_code_prefix VARCHAR(16) NOT NULL,
			city VARCHAR(255) NOT NULL,
			state VARCHAR(8) NOT NULL
		);
	`
}

func GetGeolocationSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS geolocation (
			zip_code_prefix VARCHAR(16) NOT NULL,
			lat DOUBLE PRECISION NOT NULL,
			lng DOUBLE PRECISION NOT NULL,
			city VARCHAR(255) NOT NULL,
			state VARCHAR(8) NOT NULL
		);
	`
}

func GetReviewsSchema() string {
	return `
		CREATE TABLE IF NOT EXISTS reviews (
			id VARCHAR(255) NOT NULL,
			order_id VARCHAR(255) NOT NULL,
			score INT NOT NULL,
			PRIMARY KEY (id, order_id)
		);
	`
}

// Schemas returns every table definition in creation order.
func Schemas() []string {
	return []string{
		GetOrdersSchema(),
		GetOrderItemsSchema(),
		GetProductsSchema(),
		GetCustomersSchema(),
		GetSellersSchema(),
		GetGeolocationSchema(),
		GetReviewsSchema(),
	}
}

// TableNames lists the tables in creation order.
var TableNames = []string{"orders", "order_items", "products", "customers", "sellers", "geolocation", "reviews"}

/*
MongoDB document structure:

orders: {
  _id: <string>,
  customer_id: <string>,
  status: <string>,
  purchase_timestamp: <date>,
  items: [
    {
      seq: <number>,
      product_id: <string>,
      seller_id: <string>,
      price: <string>,
      freight_value: <string>
    }
  ]
}

products:    { _id: <string>, category: <string> }
customers:   { _id: <string>, unique_id: <string>, zip_code_prefix: <string>, city: <string>, state: <string> }
sellers:     { _id: <string>, zip_code_prefix: <string>, city: <string>, state: <string> }
geolocation: { zip_code_prefix: <string>, lat: <number>, lng: <number>, city: <string>, state: <string> }
reviews:     { _id: <ObjectId>, review_id: <string>, order_id: <string>, score: <number> }

A review_id may be shared by several orders, so reviews get a generated _id.

*/
