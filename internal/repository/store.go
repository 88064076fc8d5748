package repository

import (
	"context"

	"umkm-inventory/internal/model"

	"gorm.io/gorm"
)

// NewPostgresStore wires the GORM repositories around one connection pool.
func NewPostgresStore(db *gorm.DB) Store {
	return Store{
		Items:      NewItemRepo(db),
		Sales:      NewSaleRepo(db),
		UnitOfWork: NewUnitOfWork(db),
		Close: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Item{}, &model.Sale{}, &model.SaleLineItem{})
}
