package testutil

// CommerceMigrations returns the DDL for the commerce service tables, in
// apply order. Kept in sync with the repositories' column lists; integration
// tests apply these against the shared test container.
func CommerceMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS products (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL,
			name VARCHAR(255) NOT NULL,
			name_key VARCHAR(255) NOT NULL,
			sku VARCHAR(100) NOT NULL DEFAULT '',
			description TEXT,
			category VARCHAR(100) NOT NULL DEFAULT '',
			manufacturer VARCHAR(255),
			unit VARCHAR(50) NOT NULL DEFAULT 'unit',
			gst_rate NUMERIC(5,2) NOT NULL DEFAULT 0,
			min_stock_level INT NOT NULL DEFAULT 0,
			seasonality VARCHAR(20) NOT NULL DEFAULT 'AllYear'
				CONSTRAINT seasonality_valid CHECK (seasonality IN ('Summer', 'Monsoon', 'Winter', 'AllYear')),
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_name_key ON products (tenant_id, name_key)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_products_sku ON products (tenant_id, sku) WHERE sku <> ''`,

		`CREATE TABLE IF NOT EXISTS batches (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL,
			product_id UUID NOT NULL REFERENCES products(id),
			batch_number VARCHAR(100) NOT NULL,
			expiry_date TIMESTAMPTZ NOT NULL,
			quantity INT NOT NULL CONSTRAINT quantity_non_negative CHECK (quantity >= 0),
			mrp NUMERIC(12,2) NOT NULL DEFAULT 0,
			purchase_rate NUMERIC(12,2) NOT NULL DEFAULT 0,
			supplier_id UUID,
			received_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (tenant_id, product_id, batch_number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_batches_allocation ON batches (tenant_id, product_id, expiry_date) WHERE quantity > 0`,

		`CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			pharmacy_id UUID NOT NULL,
			distributor_id UUID NOT NULL,
			status VARCHAR(20) NOT NULL
				CONSTRAINT status_valid CHECK (status IN ('PENDING', 'ACCEPTED', 'PACKED', 'SHIPPED', 'DELIVERED', 'REJECTED')),
			total_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
			delivery_otp VARCHAR(6),
			assigned_to UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_pharmacy ON orders (pharmacy_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_distributor ON orders (distributor_id, status)`,

		`CREATE TABLE IF NOT EXISTS order_items (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id),
			product_id UUID NOT NULL,
			name VARCHAR(255) NOT NULL,
			quantity INT NOT NULL CHECK (quantity > 0),
			unit_price NUMERIC(12,2) NOT NULL,
			total_price NUMERIC(14,2) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items (order_id)`,

		`CREATE TABLE IF NOT EXISTS order_timeline (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id),
			status VARCHAR(20) NOT NULL,
			remark TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_timeline_order ON order_timeline (order_id)`,

		`CREATE TABLE IF NOT EXISTS tenant_connections (
			id UUID PRIMARY KEY,
			pharmacy_id UUID NOT NULL,
			distributor_id UUID NOT NULL,
			status VARCHAR(20) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (pharmacy_id, distributor_id)
		)`,

		`CREATE TABLE IF NOT EXISTS trends (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL,
			name VARCHAR(255) NOT NULL,
			affected_categories TEXT NOT NULL DEFAULT '',
			boost_factor DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trends_tenant ON trends (tenant_id, is_active)`,
	}
}

// CommerceTables lists the tables in reverse dependency order, for truncation
// between tests.
func CommerceTables() []string {
	return []string{
		"order_timeline",
		"order_items",
		"orders",
		"tenant_connections",
		"trends",
		"batches",
		"products",
	}
}
