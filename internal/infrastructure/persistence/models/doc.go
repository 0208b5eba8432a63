// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
// - base.go: Base persistence models (BaseModel, AggregateModel)
// - inventory.go: Batches, allocations and inventory movements
// - trade.go: Purchase orders, purchase order lines and order stages
package models
