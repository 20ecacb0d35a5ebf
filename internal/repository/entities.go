package repository

import (
	"database/sql"
	"encoding/json"

	"restaurant-pos/internal/domain"
)

// Store groups the per-entity repositories the terminal consumes.
type Store struct {
	Tables     Repository[domain.Table]
	Items      Repository[domain.Item]
	Categories Repository[domain.Category]
	Customers  Repository[domain.Customer]
	Sales      SaleRecorder
}

func NewPGStore(db *sql.DB) *Store {
	return &Store{
		Tables:     NewPG(db, TableSpec),
		Items:      NewPG(db, ItemSpec),
		Categories: NewPG(db, CategorySpec),
		Customers:  NewPG(db, CustomerSpec),
		Sales:      NewSalesPG(db),
	}
}

var TableSpec = Spec[domain.Table]{
	Entity:  "table",
	Table:   "pos_tables",
	Columns: []string{"id", "name", "number", "status", "current_order"},
	Scan: func(s RowScanner) (domain.Table, error) {
		var (
			t   domain.Table
			st  string
			raw []byte
		)
		if err := s.Scan(&t.ID, &t.Name, &t.Number, &st, &raw); err != nil {
			return domain.Table{}, err
		}
		t.Status = domain.TableStatus(st)
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &t.Order); err != nil {
				return domain.Table{}, err
			}
		}
		return t, nil
	},
	Values: func(t domain.Table) ([]any, error) {
		raw, err := json.Marshal(t.Order)
		if err != nil {
			return nil, err
		}
		return []any{t.ID, t.Name, t.Number, string(t.Status), raw}, nil
	},
}

var ItemSpec = Spec[domain.Item]{
	Entity:  "item",
	Table:   "items",
	Columns: []string{"id", "name", "category_id", "price", "active"},
	Scan: func(s RowScanner) (domain.Item, error) {
		var (
			it  domain.Item
			cat sql.NullString
		)
		if err := s.Scan(&it.ID, &it.Name, &cat, &it.Price, &it.Active); err != nil {
			return domain.Item{}, err
		}
		it.CategoryID = cat.String
		return it, nil
	},
	Values: func(it domain.Item) ([]any, error) {
		return []any{it.ID, it.Name, nullIfEmpty(it.CategoryID), it.Price, it.Active}, nil
	},
}

var CategorySpec = Spec[domain.Category]{
	Entity:  "category",
	Table:   "categories",
	Columns: []string{"id", "name"},
	Scan: func(s RowScanner) (domain.Category, error) {
		var c domain.Category
		err := s.Scan(&c.ID, &c.Name)
		return c, err
	},
	Values: func(c domain.Category) ([]any, error) { return []any{c.ID, c.Name}, nil },
}

var CustomerSpec = Spec[domain.Customer]{
	Entity:  "customer",
	Table:   "customers",
	Columns: []string{"id", "name", "phone", "email"},
	Scan: func(s RowScanner) (domain.Customer, error) {
		var (
			c            domain.Customer
			phone, email sql.NullString
		)
		if err := s.Scan(&c.ID, &c.Name, &phone, &email); err != nil {
			return domain.Customer{}, err
		}
		c.Phone, c.Email = phone.String, email.String
		return c, nil
	},
	Values: func(c domain.Customer) ([]any, error) {
		return []any{c.ID, c.Name, nullIfEmpty(c.Phone), nullIfEmpty(c.Email)}, nil
	},
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
