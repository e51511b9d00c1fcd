// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package sync

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/platewire/platewire/internal/models"
	"github.com/platewire/platewire/internal/store"
)

// Handler applies one mutation intent against the durable store. All
// failures are value-returned so the coordinator can classify and continue;
// a handler never panics on bad input.
type Handler interface {
	Apply(ctx context.Context, tenantID string, kind models.MutationKind, payload json.RawMessage) (entityID string, err error)
}

// newHandlerRegistry builds the entity-type dispatch table. Dispatch over
// the EntityType tag is exhaustive: an unregistered type fails before any
// store access.
func newHandlerRegistry(st store.Store) map[models.EntityType]Handler {
	return map[models.EntityType]Handler{
		models.EntityOrder:       &orderHandler{store: st},
		models.EntityOrderItem:   &orderItemHandler{store: st},
		models.EntityTableStatus: &tableHandler{store: st},
	}
}

// round2 keeps monetary values at two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// decodePayload unmarshals an intent payload into the handler's typed
// struct. Unknown fields are dropped by the decoder, which is what keeps
// non-allowlisted fields from ever reaching a patch.
func decodePayload(payload json.RawMessage, dst any) error {
	if len(payload) == 0 {
		return validationf("payload is required")
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return validationf("malformed payload: %v", err)
	}
	return nil
}

// ---- orders ----

type orderHandler struct {
	store store.Store
}

// orderCreatePayload lists the fields a terminal may set at creation.
type orderCreatePayload struct {
	TableID     *string  `json:"table_id"`
	Notes       *string  `json:"notes"`
	TotalAmount float64  `json:"total_amount"`
	TaxRate     *float64 `json:"tax_rate"`
}

// orderUpdatePayload is the explicit allowlist of mutable order fields.
// Anything else a client sends is silently ignored, never applied.
type orderUpdatePayload struct {
	ID            string     `json:"id"`
	Status        *string    `json:"status"`
	Notes         *string    `json:"notes"`
	TotalAmount   *float64   `json:"total_amount"`
	TaxRate       *float64   `json:"tax_rate"`
	PaymentMethod *string    `json:"payment_method"`
	PaidAt        *time.Time `json:"paid_at"`
}

type deletePayload struct {
	ID string `json:"id"`
}

func (h *orderHandler) Apply(ctx context.Context, tenantID string, kind models.MutationKind, payload json.RawMessage) (string, error) {
	switch kind {
	case models.KindCreate:
		return h.create(ctx, tenantID, payload)
	case models.KindUpdate:
		return h.update(ctx, tenantID, payload)
	case models.KindDelete:
		return h.delete(ctx, tenantID, payload)
	default:
		return "", validationf("unknown kind %q for order", kind)
	}
}

func (h *orderHandler) create(ctx context.Context, tenantID string, payload json.RawMessage) (string, error) {
	var p orderCreatePayload
	if err := decodePayload(payload, &p); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	number, err := h.nextOrderNumber(ctx, tenantID, now)
	if err != nil {
		return "", classifyStoreErr(err)
	}

	taxRate := models.DefaultTaxRate
	if p.TaxRate != nil {
		taxRate = *p.TaxRate
	}

	order := &models.Order{
		ID:          uuid.New().String(),
		TenantID:    tenantID,
		TableID:     p.TableID,
		OrderNumber: number,
		Status:      models.OrderStatusPending,
		Notes:       p.Notes,
		TotalAmount: round2(p.TotalAmount),
		TaxRate:     taxRate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.store.InsertOrder(ctx, order); err != nil {
		return "", classifyStoreErr(err)
	}
	return order.ID, nil
}

// nextOrderNumber formats the daily sequential order number YYYYMMDD-NNNN
// from the tenant's same-day order count plus one.
func (h *orderHandler) nextOrderNumber(ctx context.Context, tenantID string, now time.Time) (string, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	count, err := h.store.CountOrdersSince(ctx, tenantID, dayStart)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d", now.Format("20060102"), count+1), nil
}

func (h *orderHandler) update(ctx context.Context, tenantID string, payload json.RawMessage) (string, error) {
	var p orderUpdatePayload
	if err := decodePayload(payload, &p); err != nil {
		return "", err
	}
	if p.ID == "" {
		return "", validationf("order update requires id")
	}

	patch := store.OrderPatch{
		Status:        p.Status,
		Notes:         p.Notes,
		TaxRate:       p.TaxRate,
		PaymentMethod: p.PaymentMethod,
		PaidAt:        p.PaidAt,
	}
	if p.TotalAmount != nil {
		rounded := round2(*p.TotalAmount)
		patch.TotalAmount = &rounded
	}

	// A patch with nothing to change still targets an entity; it succeeds
	// only if that entity exists.
	if patch.IsZero() {
		if _, err := h.store.GetOrder(ctx, tenantID, p.ID); err != nil {
			return "", classifyStoreErr(err)
		}
		return p.ID, nil
	}

	affected, err := h.store.UpdateOrder(ctx, tenantID, p.ID, patch)
	if err != nil {
		return "", classifyStoreErr(err)
	}
	if affected == 0 {
		return "", fmt.Errorf("%w: order %s", ErrNotFound, p.ID)
	}
	return p.ID, nil
}

// delete is a soft transition to the cancelled status; the row stays.
// Replaying a delete lands on the same terminal status with no error,
// which is what makes deletes idempotent under retry.
func (h *orderHandler) delete(ctx context.Context, tenantID string, payload json.RawMessage) (string, error) {
	var p deletePayload
	if err := decodePayload(payload, &p); err != nil {
		return "", err
	}
	if p.ID == "" {
		return "", validationf("order delete requires id")
	}

	cancelled := models.OrderStatusCancelled
	affected, err := h.store.UpdateOrder(ctx, tenantID, p.ID, store.OrderPatch{Status: &cancelled})
	if err != nil {
		return "", classifyStoreErr(err)
	}
	if affected == 0 {
		return "", fmt.Errorf("%w: order %s", ErrNotFound, p.ID)
	}
	return p.ID, nil
}

// ---- order items ----

type orderItemHandler struct {
	store store.Store
}

type orderItemCreatePayload struct {
	OrderID    string  `json:"order_id"`
	MenuItemID string  `json:"menu_item_id"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	Notes      *string `json:"notes"`
}

// orderItemUpdatePayload is the explicit allowlist of mutable line fields.
type orderItemUpdatePayload struct {
	ID       string  `json:"id"`
	Quantity *int    `json:"quantity"`
	Status   *string `json:"status"`
	Notes    *string `json:"notes"`
}

func (h *orderItemHandler) Apply(ctx context.Context, tenantID string, kind models.MutationKind, payload json.RawMessage) (string, error) {
	switch kind {
	case models.KindCreate:
		return h.create(ctx, tenantID, payload)
	case models.KindUpdate:
		return h.update(ctx, tenantID, payload)
	case models.KindDelete:
		return h.delete(ctx, tenantID, payload)
	default:
		return "", validationf("unknown kind %q for order_item", kind)
	}
}

func (h *orderItemHandler) create(ctx context.Context, tenantID string, payload json.RawMessage) (string, error) {
	var p orderItemCreatePayload
	if err := decodePayload(payload, &p); err != nil {
		return "", err
	}
	if p.OrderID == "" {
		return "", validationf("order item requires order_id")
	}
	if p.Quantity < 1 {
		return "", validationf("order item quantity must be at least 1")
	}

	// The parent order must exist within the tenant.
	if _, err := h.store.GetOrder(ctx, tenantID, p.OrderID); err != nil {
		return "", classifyStoreErr(err)
	}

	now := time.Now().UTC()
	item := &models.OrderItem{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		OrderID:    p.OrderID,
		MenuItemID: p.MenuItemID,
		Name:       p.Name,
		Quantity:   p.Quantity,
		UnitPrice:  round2(p.UnitPrice),
		TotalPrice: round2(float64(p.Quantity) * p.UnitPrice),
		Status:     models.ItemStatusPending,
		Notes:      p.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.store.InsertOrderItem(ctx, item); err != nil {
		return "", classifyStoreErr(err)
	}
	return item.ID, nil
}

func (h *orderItemHandler) update(ctx context.Context, tenantID string, payload json.RawMessage) (string, error) {
	var p orderItemUpdatePayload
	if err := decodePayload(payload, &p); err != nil {
		return "", err
	}
	if p.ID == "" {
		return "", validationf("order item update requires id")
	}

	patch := store.OrderItemPatch{
		Status: p.Status,
		Notes:  p.Notes,
	}
	if p.Quantity != nil {
		if *p.Quantity < 1 {
			return "", validationf("order item quantity must be at least 1")
		}
		// Quantity changes recompute the line total from the stored unit
		// price so total_price never drifts from quantity x unit_price.
		current, err := h.store.GetOrderItem(ctx, tenantID, p.ID)
		if err != nil {
			return "", classifyStoreErr(err)
		}
		total := round2(float64(*p.Quantity) * current.UnitPrice)
		patch.Quantity = p.Quantity
		patch.TotalPrice = &total
	}

	if patch.IsZero() {
		if _, err := h.store.GetOrderItem(ctx, tenantID, p.ID); err != nil {
			return "", classifyStoreErr(err)
		}
		return p.ID, nil
	}

	affected, err := h.store.UpdateOrderItem(ctx, tenantID, p.ID, patch)
	if err != nil {
		return "", classifyStoreErr(err)
	}
	if affected == 0 {
		return "", fmt.Errorf("%w: order item %s", ErrNotFound, p.ID)
	}
	return p.ID, nil
}

func (h *orderItemHandler) delete(ctx context.Context, tenantID string, payload json.RawMessage) (string, error) {
	var p deletePayload
	if err := decodePayload(payload, &p); err != nil {
		return "", err
	}
	if p.ID == "" {
		return "", validationf("order item delete requires id")
	}

	cancelled := models.ItemStatusCancelled
	affected, err := h.store.UpdateOrderItem(ctx, tenantID, p.ID, store.OrderItemPatch{Status: &cancelled})
	if err != nil {
		return "", classifyStoreErr(err)
	}
	if affected == 0 {
		return "", fmt.Errorf("%w: order item %s", ErrNotFound, p.ID)
	}
	return p.ID, nil
}

// ---- table status ----

type tableHandler struct {
	store store.Store
}

type tableCreatePayload struct {
	Number int `json:"number"`
	Seats  int `json:"seats"`
}

type tableUpdatePayload struct {
	ID     string  `json:"id"`
	Status *string `json:"status"`
}

func (h *tableHandler) Apply(ctx context.Context, tenantID string, kind models.MutationKind, payload json.RawMessage) (string, error) {
	switch kind {
	case models.KindCreate:
		return h.create(ctx, tenantID, payload)
	case models.KindUpdate:
		return h.update(ctx, tenantID, payload)
	case models.KindDelete:
		return h.delete(ctx, tenantID, payload)
	default:
		return "", validationf("unknown kind %q for table_status", kind)
	}
}

func (h *tableHandler) create(ctx context.Context, tenantID string, payload json.RawMessage) (string, error) {
	var p tableCreatePayload
	if err := decodePayload(payload, &p); err != nil {
		return "", err
	}
	if p.Number < 1 {
		return "", validationf("table number must be at least 1")
	}

	now := time.Now().UTC()
	table := &models.DiningTable{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		Number:    p.Number,
		Seats:     p.Seats,
		Status:    models.TableStatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.InsertTable(ctx, table); err != nil {
		return "", classifyStoreErr(err)
	}
	return table.ID, nil
}

func (h *tableHandler) update(ctx context.Context, tenantID string, payload json.RawMessage) (string, error) {
	var p tableUpdatePayload
	if err := decodePayload(payload, &p); err != nil {
		return "", err
	}
	if p.ID == "" {
		return "", validationf("table update requires id")
	}

	patch := store.TablePatch{Status: p.Status}
	if patch.IsZero() {
		if _, err := h.store.GetTable(ctx, tenantID, p.ID); err != nil {
			return "", classifyStoreErr(err)
		}
		return p.ID, nil
	}

	affected, err := h.store.UpdateTable(ctx, tenantID, p.ID, patch)
	if err != nil {
		return "", classifyStoreErr(err)
	}
	if affected == 0 {
		return "", fmt.Errorf("%w: table %s", ErrNotFound, p.ID)
	}
	return p.ID, nil
}

// delete frees the table back to available rather than removing the row, so
// a replayed delete converges on the same status without error.
func (h *tableHandler) delete(ctx context.Context, tenantID string, payload json.RawMessage) (string, error) {
	var p deletePayload
	if err := decodePayload(payload, &p); err != nil {
		return "", err
	}
	if p.ID == "" {
		return "", validationf("table delete requires id")
	}

	available := models.TableStatusAvailable
	affected, err := h.store.UpdateTable(ctx, tenantID, p.ID, store.TablePatch{Status: &available})
	if err != nil {
		return "", classifyStoreErr(err)
	}
	if affected == 0 {
		return "", fmt.Errorf("%w: table %s", ErrNotFound, p.ID)
	}
	return p.ID, nil
}
