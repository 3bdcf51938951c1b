package database

import (
	"database/sql"
	"time"

	"vigia-precos/internal/models"

	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"
)

// DB encapsula a conexão com o banco de dados.
type DB struct {
	conn *sql.DB
}

// New cria uma nova instância do banco de dados.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn}

	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	log.WithField("path", dbPath).Info("Banco de dados inicializado")
	return db, nil
}

// Close fecha a conexão com o banco de dados.
func (db *DB) Close() error {
	return db.conn.Close()
}

// init cria as tabelas necessárias.
func (db *DB) init() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL UNIQUE,
		domain TEXT NOT NULL,
		title TEXT,
		currency TEXT NOT NULL DEFAULT 'BRL',
		current_price REAL,
		in_stock BOOLEAN,
		last_checked_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS price_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		price REAL NOT NULL,
		captured_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_price_history_product ON price_history(product_id, captured_at);

	CREATE TABLE IF NOT EXISTS watches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		channel TEXT NOT NULL,
		target_price REAL,
		drop_percent REAL,
		endpoint TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_watches_product ON watches(product_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

const productColumns = "id, url, domain, title, currency, current_price, in_stock, last_checked_at, created_at"

func scanProduct(row interface{ Scan(...interface{}) error }) (*models.Product, error) {
	var p models.Product
	var title sql.NullString
	var price sql.NullFloat64
	var inStock sql.NullBool
	var lastChecked, createdAt sql.NullTime

	err := row.Scan(&p.ID, &p.URL, &p.Domain, &title, &p.Currency, &price, &inStock, &lastChecked, &createdAt)
	if err != nil {
		return nil, err
	}
	if title.Valid {
		p.Title = title.String
	}
	if price.Valid {
		v := price.Float64
		p.CurrentPrice = &v
	}
	if inStock.Valid {
		v := inStock.Bool
		p.InStock = &v
	}
	if lastChecked.Valid {
		p.LastCheckedAt = lastChecked.Time
	}
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time
	}
	return &p, nil
}

// CreateProduct insere um novo produto rastreado.
func (db *DB) CreateProduct(url, domain string) (*models.Product, error) {
	res, err := db.conn.Exec(
		"INSERT INTO products (url, domain) VALUES (?, ?)",
		url, domain,
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return db.GetProduct(id)
}

// FindProductByURL retorna o produto com a URL exata, ou nil se não existe.
func (db *DB) FindProductByURL(url string) (*models.Product, error) {
	row := db.conn.QueryRow("SELECT "+productColumns+" FROM products WHERE url = ?", url)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// GetProduct retorna um produto pelo ID.
func (db *DB) GetProduct(id int64) (*models.Product, error) {
	row := db.conn.QueryRow("SELECT "+productColumns+" FROM products WHERE id = ?", id)
	return scanProduct(row)
}

// ListProducts retorna todos os produtos rastreados, mais recentes primeiro.
func (db *DB) ListProducts() ([]models.Product, error) {
	rows, err := db.conn.Query("SELECT " + productColumns + " FROM products ORDER BY last_checked_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// UpdateProductObserved aplica o resultado de um scrape: campos nil são
// preservados, last_checked_at sempre avança.
func (db *DB) UpdateProductObserved(id int64, price *float64, title *string, inStock *bool) error {
	_, err := db.conn.Exec(`
		UPDATE products SET
			current_price = COALESCE(?, current_price),
			title = COALESCE(?, title),
			in_stock = COALESCE(?, in_stock),
			last_checked_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		price, title, inStock, id,
	)
	return err
}

// AppendObservation registra um preço observado no histórico do produto.
func (db *DB) AppendObservation(productID int64, price float64) error {
	_, err := db.conn.Exec(
		"INSERT INTO price_history (product_id, price, captured_at) VALUES (?, ?, ?)",
		productID, price, time.Now().UTC(),
	)
	return err
}

func scanObservation(row interface{ Scan(...interface{}) error }) (*models.PriceObservation, error) {
	var o models.PriceObservation
	if err := row.Scan(&o.ID, &o.ProductID, &o.Price, &o.CapturedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

// PreviousObservation retorna a penúltima observação do produto (a anterior
// à mais recente), ou nil quando há menos de duas.
func (db *DB) PreviousObservation(productID int64) (*models.PriceObservation, error) {
	row := db.conn.QueryRow(`
		SELECT id, product_id, price, captured_at FROM price_history
		WHERE product_id = ?
		ORDER BY captured_at DESC, id DESC
		LIMIT 1 OFFSET 1`,
		productID,
	)
	o, err := scanObservation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return o, err
}

// ListObservationsSince retorna as observações do produto a partir de um
// instante, mais recentes primeiro.
func (db *DB) ListObservationsSince(productID int64, since time.Time) ([]models.PriceObservation, error) {
	rows, err := db.conn.Query(`
		SELECT id, product_id, price, captured_at FROM price_history
		WHERE product_id = ? AND captured_at >= ?
		ORDER BY captured_at DESC, id DESC`,
		productID, since.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []models.PriceObservation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		observations = append(observations, *o)
	}
	return observations, rows.Err()
}

// CreateWatch insere uma nova condição de alerta para um produto.
func (db *DB) CreateWatch(w models.Watch) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO watches (product_id, channel, target_price, drop_percent, endpoint, active) VALUES (?, ?, ?, ?, ?, 1)",
		w.ProductID, w.Channel, w.TargetPrice, w.DropPercent, w.Endpoint,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func scanWatch(row interface{ Scan(...interface{}) error }) (*models.Watch, error) {
	var w models.Watch
	var target, drop sql.NullFloat64
	var createdAt sql.NullTime

	err := row.Scan(&w.ID, &w.ProductID, &w.Channel, &target, &drop, &w.Endpoint, &w.Active, &createdAt)
	if err != nil {
		return nil, err
	}
	if target.Valid {
		v := target.Float64
		w.TargetPrice = &v
	}
	if drop.Valid {
		v := drop.Float64
		w.DropPercent = &v
	}
	if createdAt.Valid {
		w.CreatedAt = createdAt.Time
	}
	return &w, nil
}

const watchColumns = "id, product_id, channel, target_price, drop_percent, endpoint, active, created_at"

// ListActiveWatches retorna os watches ativos de um produto.
func (db *DB) ListActiveWatches(productID int64) ([]models.Watch, error) {
	return db.queryWatches("SELECT "+watchColumns+" FROM watches WHERE product_id = ? AND active = 1", productID)
}

// ListWatches retorna todos os watches de um produto, ativos ou não.
func (db *DB) ListWatches(productID int64) ([]models.Watch, error) {
	return db.queryWatches("SELECT "+watchColumns+" FROM watches WHERE product_id = ?", productID)
}

func (db *DB) queryWatches(query string, args ...interface{}) ([]models.Watch, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var watches []models.Watch
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, err
		}
		watches = append(watches, *w)
	}
	return watches, rows.Err()
}

// GetWatch retorna um watch pelo ID.
func (db *DB) GetWatch(id int64) (*models.Watch, error) {
	row := db.conn.QueryRow("SELECT "+watchColumns+" FROM watches WHERE id = ?", id)
	return scanWatch(row)
}

// DeactivateWatch desativa um watch. Produtos nunca são removidos aqui.
func (db *DB) DeactivateWatch(id int64) error {
	_, err := db.conn.Exec("UPDATE watches SET active = 0 WHERE id = ?", id)
	return err
}
